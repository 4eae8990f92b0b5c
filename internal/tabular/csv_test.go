package tabular

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_Basic(t *testing.T) {
	input := "Name,Address\nWake,\"1 A St, Raleigh, NC 27601\"\nDare,\n"

	tbl, err := ParseCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Address"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1 A St, Raleigh, NC 27601", tbl.Get(0, "Address"))
	assert.Equal(t, "", tbl.Get(1, "Address"))
}

func TestParseCSV_Latin1(t *testing.T) {
	// "Caf\xe9" is "Café" in ISO-8859-1.
	input := []byte("Name\nCaf\xe9\n")

	tbl, err := ParseCSV(context.Background(), bytes.NewReader(input), CSVOptions{Encoding: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, "Café", tbl.Get(0, "Name"))
}

func TestParseCSV_UnsupportedEncoding(t *testing.T) {
	_, err := ParseCSV(context.Background(), strings.NewReader("a\n"), CSVOptions{Encoding: "ebcdic"})
	assert.ErrorContains(t, err, "unsupported encoding")
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	assert.ErrorContains(t, err, "no header row")
}

func TestParseCSV_TrimSpaceAndDelimiter(t *testing.T) {
	input := "a | b\n 1 | 2 \n"

	tbl, err := ParseCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '|', TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)
	assert.Equal(t, []string{"1", "2"}, tbl.Rows[0])
}

func TestStreamCSV_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})
	for range rowCh {
	}
	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "context cancelled")
}

func TestWriteCSV_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	tbl := New("Lab Name", "Inorganic")
	tbl.Append([]string{"Acme, Inc.", "Lead; Arsenic"})

	require.NoError(t, Write(path, "", tbl))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Lab Name,Inorganic\n\"Acme, Inc.\",Lead; Arsenic\n", string(raw))

	back, err := Read(context.Background(), path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}

func TestWriteXLSX_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	tbl := New("Name", "Zip")
	tbl.Append([]string{"Wake", "27601"})

	require.NoError(t, Write(path, "", tbl))

	back, err := Read(context.Background(), path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, back.Header)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "x.json"), "json", New("a"))
	assert.ErrorContains(t, err, "unsupported output format")
}
