package table

import (
	"strings"
	"testing"
)

func sampleTable() ([]string, [][]string) {
	headers := []string{"Gram", "Price", "Open", "Change"}
	rows := [][]string{
		{"1g", "₹6,000", "₹5,980", "+20"},
		{"8g", "₹48,000", "₹47,840", "-10"},
		{"10g", "₹60,000", "₹59,800", "0"},
	}
	return headers, rows
}

func TestWidth(t *testing.T) {
	cases := map[string]int{
		"":       0,
		"abc":    3,
		"₹6,000": 6,
		"🔴":      2,
		"🟢 +20":  6,
		"金价":     4,
		"한국":     4,
		"ＡＢ":     4,
		"é": 2,
		"𠀀":      2,
	}
	for in, want := range cases {
		if got := Width(in); got != want {
			t.Errorf("Width(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestWidthIsAdditive(t *testing.T) {
	parts := []string{"", "a", "🥇", "₹1,00,000", "金", "−10", "\u0301", "ｶ"}
	for _, a := range parts {
		for _, b := range parts {
			if Width(a+b) != Width(a)+Width(b) {
				t.Fatalf("Width(%q+%q) not additive", a, b)
			}
		}
	}
}

func TestRenderAlignsEveryLine(t *testing.T) {
	headers, rows := sampleTable()
	out := Render(headers, rows)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header+separator+3 rows, got %d lines:\n%s", len(lines), out)
	}
	want := Width(lines[0])
	for i, line := range lines {
		if Width(line) != want {
			t.Fatalf("line %d width %d != %d\n%s", i, Width(line), want, out)
		}
	}
	if !strings.Contains(lines[1], "-+-") {
		t.Fatalf("separator missing: %q", lines[1])
	}
}

func TestRenderAlignsWideHeaders(t *testing.T) {
	headers := []string{"克", "价格 ₹", "x", "变化"}
	rows := [][]string{{"1", "2", "3", "−4"}, {"10", "200", "3000", "40000"}}
	lines := strings.Split(Render(headers, rows), "\n")
	for _, line := range lines {
		if Width(line) != Width(lines[0]) {
			t.Fatalf("misaligned table:\n%s", strings.Join(lines, "\n"))
		}
	}
}

func TestRenderChangeGlyphs(t *testing.T) {
	headers := []string{"Gram", "Price", "Open", "Change"}
	cases := []struct {
		change string
		want   string
	}{
		{"-10", GlyphDown},
		{"−10", GlyphDown},
		{"10-gram", GlyphUp},
		{"+20", GlyphUp},
		{"0", GlyphUp},
	}
	for _, tc := range cases {
		out := Render(headers, [][]string{{"1g", "6000", "5980", tc.change}})
		if !strings.Contains(out, tc.want+" "+tc.change) {
			t.Errorf("change %q: expected %s glyph in\n%s", tc.change, tc.want, out)
		}
	}
}

func TestRenderShortRowsGetNoGlyph(t *testing.T) {
	headers := []string{"Gram", "Price", "Open"}
	out := Render(headers, [][]string{{"1g", "-6000", "5980"}})
	if strings.Contains(out, GlyphDown) || strings.Contains(out, GlyphUp) {
		t.Fatalf("rows with fewer than 4 cells must not get a glyph:\n%s", out)
	}
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	headers, rows := sampleTable()
	Render(headers, rows)
	if rows[1][3] != "-10" {
		t.Fatalf("input row mutated: %q", rows[1][3])
	}
}

func TestRenderHeaderCentered(t *testing.T) {
	out := Render([]string{"A"}, [][]string{{"abcd"}})
	header := strings.Split(out, "\n")[0]
	if header != " A  " {
		t.Fatalf("header should be centred with extra space on the right, got %q", header)
	}
}
