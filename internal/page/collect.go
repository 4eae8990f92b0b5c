// Package page turns rendered HTML into the labeled rows extract works on.
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ncdata-cli/internal/extract"
)

// Default selectors for the certified-lab detail page.
const (
	DefaultRowSelector    = "tr"
	DefaultCellSelector   = "td"
	DefaultHeaderSelector = "td.sectionHeader"
)

// Collector finds table rows in a page. A row containing a HeaderSelector
// match becomes a header row labeled with that cell's text; any other row
// becomes a data row of its CellSelector matches.
type Collector struct {
	RowSelector    string
	CellSelector   string
	HeaderSelector string
}

// NewCollector returns a Collector with the default selectors.
func NewCollector() *Collector {
	return &Collector{
		RowSelector:    DefaultRowSelector,
		CellSelector:   DefaultCellSelector,
		HeaderSelector: DefaultHeaderSelector,
	}
}

func (c *Collector) selectors() (row, cell, header string) {
	row, cell, header = c.RowSelector, c.CellSelector, c.HeaderSelector
	if row == "" {
		row = DefaultRowSelector
	}
	if cell == "" {
		cell = DefaultCellSelector
	}
	if header == "" {
		header = DefaultHeaderSelector
	}
	return row, cell, header
}

// Collect parses html and returns its rows in document order. Rows without
// cells are skipped. Nested rows are visited too, so a cell inside a nested
// table is reported by both the outer and the inner row.
func (c *Collector) Collect(html string) ([]extract.Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "page: parse html")
	}

	rowSel, cellSel, headerSel := c.selectors()

	var rows []extract.Row
	doc.Find(rowSel).Each(func(_ int, tr *goquery.Selection) {
		if hdr := tr.Find(headerSel); hdr.Length() > 0 {
			rows = append(rows, extract.HeaderRow(StrippedText(hdr.First())))
			return
		}

		cells := tr.Find(cellSel)
		if cells.Length() == 0 {
			return
		}
		rows = append(rows, extract.DataRow(cells.Map(func(_ int, td *goquery.Selection) string {
			return StrippedText(td)
		})...))
	})
	return rows, nil
}

// StrippedText concatenates the trimmed text nodes under s. Whitespace
// between inline elements is dropped, so "<b>A</b> <i>B</i>" reads "AB".
func StrippedText(s *goquery.Selection) string {
	var b strings.Builder
	s.Each(func(_ int, sel *goquery.Selection) {
		writeStripped(&b, sel)
	})
	return b.String()
}

func writeStripped(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			b.WriteString(strings.TrimSpace(child.Text()))
		case "#comment", "script", "style":
		default:
			writeStripped(b, child)
		}
	})
}
