package table

import "strings"

const (
	// ChangeColumn is the column that receives the direction glyph.
	ChangeColumn = 3

	GlyphDown = "🔴"
	GlyphUp   = "🟢"
)

// Render lays out headers and rows as an aligned monospace table.
//
// Glyph injection happens on a copy of rows before any width is measured, so
// the glyph's double width is part of the column width.
func Render(headers []string, rows [][]string) string {
	decorated := decorate(rows)

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = Width(h)
	}
	for _, row := range decorated {
		for i := range widths {
			if w := Width(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(decorated)+2)

	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = padCenter(h, widths[i])
	}
	lines = append(lines, strings.Join(parts, " | "))

	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(dashes, "-+-"))

	for _, row := range decorated {
		parts := make([]string, len(headers))
		for i := range headers {
			parts[i] = padRight(cell(row, i), widths[i])
		}
		lines = append(lines, strings.Join(parts, " | "))
	}

	return strings.Join(lines, "\n")
}

// ChangeGlyph picks the direction glyph for a change cell.
func ChangeGlyph(change string) string {
	if strings.HasPrefix(change, "-") || strings.HasPrefix(change, "−") {
		return GlyphDown
	}
	return GlyphUp
}

func decorate(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cp := make([]string, len(row))
		copy(cp, row)
		if len(cp) > ChangeColumn {
			cp[ChangeColumn] = ChangeGlyph(cp[ChangeColumn]) + " " + cp[ChangeColumn]
		}
		out[i] = cp
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func padRight(s string, width int) string {
	pad := width - Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

func padCenter(s string, width int) string {
	pad := width - Width(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
