package fetcher

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"metalbot/internal/catalog"
)

const goldPage = `<html><body>
<section data-gr-title="Silver Price Today"><table class="table-conatiner">
  <thead><tr><th>Gram</th><th>Price</th></tr></thead>
  <tbody><tr><td>1g</td><td>₹90</td></tr></tbody>
</table></section>
<section data-gr-title="Today 22 Carat GOLD PRICE Per Gram in Bangalore (INR)">
  <table class="table-conatiner">
    <thead><tr><th>Gram</th><th>Today</th><th>Yesterday</th><th>Change</th></tr></thead>
    <tbody>
      <tr><td>1</td><td>₹ <b>6,123</b></td><td>₹6,100</td><td>+ ₹23</td></tr>
      <tr><td colspan="4">Advertisement</td></tr>
      <tr><td>8</td><td>₹48,984</td><td>₹48,800</td><td>+ ₹184</td></tr>
      <tr><td>10</td><td>₹61,230</td><td>₹61,000</td><td>−₹230</td></tr>
    </tbody>
  </table>
</section>
</body></html>`

func mustMetal(t *testing.T, slug string) catalog.Metal {
	t.Helper()
	m, ok := catalog.LookupMetal(slug)
	if !ok {
		t.Fatalf("metal %s missing from catalog", slug)
	}
	return m
}

func TestExtractGold(t *testing.T) {
	tbl, err := Extract(strings.NewReader(goldPage), mustMetal(t, "gold"))
	if err != nil {
		t.Fatalf("Extract should succeed: %v", err)
	}
	if len(tbl.Headers) != 4 || tbl.Headers[3] != "Change" {
		t.Fatalf("unexpected headers %v", tbl.Headers)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("advertisement row should be dropped, got %d rows", len(tbl.Rows))
	}
	if tbl.Rows[0][1] != "₹6,123" {
		t.Fatalf("cell text should join trimmed fragments, got %q", tbl.Rows[0][1])
	}
	if !tbl.HasPrice || !tbl.CurrentPrice.Equal(decimal.NewFromInt(6123)) {
		t.Fatalf("current price should be 6123, got %s (%v)", tbl.CurrentPrice, tbl.HasPrice)
	}
}

func TestExtractPicksMetalSection(t *testing.T) {
	tbl, err := Extract(strings.NewReader(goldPage), mustMetal(t, "silver"))
	if err != nil {
		t.Fatalf("Extract should succeed: %v", err)
	}
	if !tbl.CurrentPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected silver section, got price %s", tbl.CurrentPrice)
	}
}

func TestExtractUnparseablePriceStillRenders(t *testing.T) {
	page := `<section data-gr-title="Gold Price"><table class="table-conatiner">
<thead><tr><th>Gram</th><th>Price</th></tr></thead>
<tbody><tr><td>1g</td><td>N/A</td></tr></tbody></table></section>`
	tbl, err := Extract(strings.NewReader(page), mustMetal(t, "gold"))
	if err != nil {
		t.Fatalf("unparseable price is not an error: %v", err)
	}
	if tbl.HasPrice || len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row without price, got %+v", tbl)
	}
}

func TestExtractStructureErrors(t *testing.T) {
	cases := []struct {
		name string
		page string
		kind StructureKind
	}{
		{
			name: "no section",
			page: `<section data-gr-title="Platinum Price"><table class="table-conatiner"></table></section>`,
			kind: MissingSection,
		},
		{
			name: "section without title attribute",
			page: `<section><h2>Gold Price</h2></section>`,
			kind: MissingSection,
		},
		{
			name: "no marker table",
			page: `<section data-gr-title="Gold Price"><table class="other"><tr><td>1</td></tr></table></section>`,
			kind: MissingTable,
		},
		{
			name: "no thead",
			page: `<section data-gr-title="Gold Price"><table class="table-conatiner"><tbody><tr><td>1</td></tr></tbody></table></section>`,
			kind: MalformedTable,
		},
		{
			name: "empty header row",
			page: `<section data-gr-title="Gold Price"><table class="table-conatiner"><thead><tr></tr></thead><tbody><tr><td>1</td></tr></tbody></table></section>`,
			kind: NoHeaders,
		},
		{
			name: "only malformed rows",
			page: `<section data-gr-title="Gold Price"><table class="table-conatiner"><thead><tr><th>A</th><th>B</th></tr></thead><tbody><tr><td>ad</td></tr></tbody></table></section>`,
			kind: NoDataRows,
		},
	}

	reasons := make(map[string]StructureKind)
	for _, tc := range cases {
		_, err := Extract(strings.NewReader(tc.page), mustMetal(t, "gold"))
		var serr *StructureError
		if !errors.As(err, &serr) {
			t.Fatalf("%s: expected StructureError, got %v", tc.name, err)
		}
		if serr.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.name, tc.kind, serr.Kind)
		}
		if prev, ok := reasons[serr.Reason]; ok && prev != serr.Kind {
			t.Fatalf("reason %q shared by %s and %s", serr.Reason, prev, serr.Kind)
		}
		reasons[serr.Reason] = serr.Kind
	}
}
