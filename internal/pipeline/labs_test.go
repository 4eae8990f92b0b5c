package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ncdata-cli/internal/extract"
	"github.com/sells-group/ncdata-cli/internal/page"
	"github.com/sells-group/ncdata-cli/internal/tabular"
)

// labHTML renders a detail page with n sectioned values followed by an
// INORGANIC list. Values at the indexes the lab schema reads are overridden.
func labHTML(n int, overrides map[int]string, inorganic ...string) string {
	var b strings.Builder
	b.WriteString(`<table><tr><td>Certified Laboratory</td></tr>`)
	b.WriteString(`<tr><td class="sectionHeader">LABORATORY</td></tr>`)
	for i := 0; i < n; i++ {
		v, ok := overrides[i]
		if !ok {
			v = fmt.Sprintf("v%d", i)
		}
		fmt.Fprintf(&b, "<tr><td>%s</td></tr>", v)
	}
	b.WriteString(`<tr><td class="sectionHeader">INORGANIC</td></tr>`)
	for _, c := range inorganic {
		fmt.Fprintf(&b, "<tr><td>%s</td></tr>", c)
	}
	b.WriteString(`</table>`)
	return b.String()
}

var acme = map[int]string{
	1:  "Acme Water Labs",
	4:  "37701",
	9:  "PO Box 10",
	11: "Raleigh, NC 27601",
	16: "919-555-0100",
	19: "919-555-0199",
}

func TestScrapeLabs(t *testing.T) {
	src := &fakePageSource{pages: []fakePage{
		{url: "https://labs.test/1", html: labHTML(20, acme, "Lead", "Arsenic")},
		{url: "https://labs.test/2", html: labHTML(5, nil)},
		{url: "https://labs.test/3", html: labHTML(20, map[int]string{1: "Beta Labs", 11: "PO Box only"})},
	}}

	records, stats, err := ScrapeLabs(context.Background(), src, page.NewCollector(), extract.CertifiedLabsSchema())
	require.NoError(t, err)

	assert.Equal(t, LabStats{Pages: 3, Extracted: 2, Failed: 1}, stats)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Acme Water Labs", first.Value("Lab Name"))
	assert.Equal(t, "37701", first.Value("Lab Number"))
	assert.Equal(t, "PO Box 10 Raleigh, NC 27601", first.Value("Mailing Address"))
	assert.Equal(t, "919-555-0100", first.Value("Phone"))
	assert.Equal(t, "919-555-0199", first.Value("Fax"))
	assert.Equal(t, "Raleigh", first.Value("City"))
	assert.Equal(t, "NC", first.Value("State"))
	assert.Equal(t, "27601", first.Value("Zip"))
	assert.Equal(t, []string{"Lead", "Arsenic"}, first.List("Inorganic"))
	assert.Empty(t, first.List("Microbiology"))

	second := records[1]
	assert.Equal(t, "Beta Labs", second.Value("Lab Name"))
	city, ok := second.Scalar("City")
	assert.True(t, ok)
	assert.Nil(t, city)
}

func TestScrapeLabs_InvalidSchema(t *testing.T) {
	schema := extract.Schema{Positional: []extract.PositionalField{
		{Name: "A", Indexes: []int{0}},
		{Name: "A", Indexes: []int{1}},
	}}
	_, _, err := ScrapeLabs(context.Background(), &fakePageSource{}, page.NewCollector(), schema)
	assert.ErrorContains(t, err, "duplicate field")
}

func TestScrapeLabs_SourceErrorKeepsRecords(t *testing.T) {
	src := &fakePageSource{
		pages: []fakePage{{url: "u", html: labHTML(20, acme)}},
		err:   errors.New("browser crashed"),
	}

	records, stats, err := ScrapeLabs(context.Background(), src, page.NewCollector(), extract.CertifiedLabsSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visit lab pages")
	assert.Len(t, records, 1)
	assert.Equal(t, 1, stats.Extracted)
}

type failingCollector struct{}

func (failingCollector) Collect(string) ([]extract.Row, error) {
	return nil, errors.New("page: parse html")
}

func TestScrapeLabs_CollectorError(t *testing.T) {
	src := &fakePageSource{pages: []fakePage{{url: "u", html: "x"}}}

	records, stats, err := ScrapeLabs(context.Background(), src, failingCollector{}, extract.CertifiedLabsSchema())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, LabStats{Pages: 1, Failed: 1}, stats)
}

func TestRecordsTable(t *testing.T) {
	schema := extract.CertifiedLabsSchema()
	rec, err := extract.Extract(mustCollect(t, labHTML(20, acme, "Lead", "Arsenic")), schema)
	require.NoError(t, err)

	tbl, err := RecordsTable([]extract.Record{rec}, schema, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.Columns(), tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "Lead; Arsenic", tbl.Get(0, "Inorganic"))
	assert.Equal(t, "", tbl.Get(0, "Microbiology"))

	moved, err := RecordsTable([]extract.Record{rec}, schema, []tabular.Move{{Column: "City", Position: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lab Name", "City", "Lab Number"}, moved.Header[:3])
	assert.Equal(t, "Raleigh", moved.Rows[0][1])

	_, err = RecordsTable(nil, schema, []tabular.Move{{Column: "Nope"}})
	assert.Error(t, err)
}

func mustCollect(t *testing.T, html string) []extract.Row {
	t.Helper()
	rows, err := page.NewCollector().Collect(html)
	require.NoError(t, err)
	return rows
}
