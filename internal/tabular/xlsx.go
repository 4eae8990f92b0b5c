package tabular

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Output formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ReadXLSX reads the first sheet (or the named one) of an XLSX file into a
// Table. The first row is the header.
func ReadXLSX(path, sheetName string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: file has no sheets")
		}
		sheet = f.Sheets[0]
	}

	var t *Table
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if t == nil {
			t = New(cells...)
			continue
		}
		t.Append(cells)
	}
	if t == nil {
		return nil, eris.New("xlsx: no header row")
	}
	return t, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// WriteXLSX writes the table to a single-sheet XLSX file.
func WriteXLSX(path, sheetName string, t *Table) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	writeRow := func(cells []string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	writeRow(t.Header)
	for _, r := range t.Rows {
		writeRow(r)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// Read loads a table from path, choosing the reader by file extension.
func Read(ctx context.Context, path string, opts CSVOptions) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, "")
	}
	return ReadCSV(ctx, path, opts)
}

// Write saves the table in the given format. An empty format is inferred
// from the file extension.
func Write(path, format string, t *Table) error {
	if format == "" {
		format = FormatCSV
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			format = FormatXLSX
		}
	}
	switch format {
	case FormatXLSX:
		return WriteXLSX(path, "", t)
	case FormatCSV:
		return WriteCSV(path, t)
	default:
		return eris.Errorf("tabular: unsupported output format %q", format)
	}
}
