package fetcher

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"metalbot/internal/catalog"
)

const (
	sectionTitleAttr = "data-gr-title"
	// tableMarkerClass is spelled the way the source site spells it.
	tableMarkerClass = "table-conatiner"
	// priceRow and priceColumn locate the current price: first data row, second cell.
	priceRow    = 0
	priceColumn = 1
)

// PriceTable is the extracted price grid of one section.
type PriceTable struct {
	Headers      []string
	Rows         [][]string
	CurrentPrice decimal.Decimal
	HasPrice     bool
}

// Extract locates the metal's price table in an HTML document.
// Body rows whose cell count differs from the header count are dropped.
func Extract(r io.Reader, metal catalog.Metal) (PriceTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PriceTable{}, fmt.Errorf("parse html: %w", err)
	}

	section := findSection(doc, metal.SectionKeyword)
	if section == nil {
		return PriceTable{}, &StructureError{
			Kind:   MissingSection,
			Reason: fmt.Sprintf("Could not locate the %s price section. The website layout may have changed.", metal.Label),
		}
	}

	tbl := section.Find("table." + tableMarkerClass).First()
	if tbl.Length() == 0 {
		return PriceTable{}, &StructureError{
			Kind:   MissingTable,
			Reason: fmt.Sprintf("Could not find the price table for %s. The website layout may have changed.", metal.Label),
		}
	}

	thead := tbl.Find("thead").First()
	tbody := tbl.Find("tbody").First()
	if thead.Length() == 0 || tbody.Length() == 0 {
		return PriceTable{}, &StructureError{
			Kind:   MalformedTable,
			Reason: "Malformed table structure on the source website.",
		}
	}

	var headers []string
	thead.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cellText(th))
	})
	if len(headers) == 0 {
		return PriceTable{}, &StructureError{Kind: NoHeaders, Reason: "Could not read table headers."}
	}

	var rows [][]string
	tbody.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cellText(td))
		})
		if len(cells) == len(headers) {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return PriceTable{}, &StructureError{Kind: NoDataRows, Reason: "No data rows found in the table."}
	}

	out := PriceTable{Headers: headers, Rows: rows}
	if len(rows[priceRow]) > priceColumn {
		out.CurrentPrice, out.HasPrice = ParsePriceCell(rows[priceRow][priceColumn])
	}
	return out, nil
}

func findSection(doc *goquery.Document, keyword string) *goquery.Selection {
	needle := strings.ToLower(keyword)
	var found *goquery.Selection
	doc.Find("section[" + sectionTitleAttr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title, _ := s.Attr(sectionTitleAttr)
		if strings.Contains(strings.ToLower(title), needle) {
			found = s
			return false
		}
		return true
	})
	return found
}

// cellText joins every text fragment under the selection, each trimmed.
func cellText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}
