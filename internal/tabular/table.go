// Package tabular reads, reshapes and writes the CSV and XLSX tables the CLI consumes and produces.
package tabular

import (
	"slices"
	"sort"

	"github.com/rotisserie/eris"
)

// Table is an in-memory table with a header row. Rows may be shorter than the
// header; missing cells read as "".
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// Get returns the cell at row i in the named column, or "" if absent.
func (t *Table) Get(i int, name string) string {
	c := t.Column(name)
	if c < 0 || i < 0 || i >= len(t.Rows) || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// Set writes the cell at row i in the named column, padding the row if needed.
func (t *Table) Set(i int, name, value string) error {
	c := t.Column(name)
	if c < 0 {
		return eris.Errorf("tabular: unknown column %q", name)
	}
	if i < 0 || i >= len(t.Rows) {
		return eris.Errorf("tabular: row %d out of range", i)
	}
	t.pad(i)
	t.Rows[i][c] = value
	return nil
}

// Append adds a row.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, row)
}

// AddColumn appends an empty column unless it already exists.
func (t *Table) AddColumn(name string) {
	if t.Column(name) >= 0 {
		return
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.pad(i)
	}
}

// DropColumn removes the named column. Dropping an unknown column is a no-op.
func (t *Table) DropColumn(name string) {
	c := t.Column(name)
	if c < 0 {
		return
	}
	t.Header = slices.Delete(t.Header, c, c+1)
	for i, row := range t.Rows {
		if c < len(row) {
			t.Rows[i] = slices.Delete(row, c, c+1)
		}
	}
}

func (t *Table) pad(i int) {
	for len(t.Rows[i]) < len(t.Header) {
		t.Rows[i] = append(t.Rows[i], "")
	}
}

// Move places Column at Position (0-based) in the final column order.
type Move struct {
	Column   string `yaml:"column" mapstructure:"column"`
	Position int    `yaml:"position" mapstructure:"position"`
}

// Reorder returns columns with each moved column placed at its target
// position. Columns that are not moved keep their relative order, so applying
// the same moves twice gives the same result as applying them once. Positions
// past the end place the column last.
func Reorder(columns []string, moves []Move) ([]string, error) {
	moving := make(map[string]bool, len(moves))
	for _, m := range moves {
		if !slices.Contains(columns, m.Column) {
			return nil, eris.Errorf("tabular: move unknown column %q", m.Column)
		}
		if moving[m.Column] {
			return nil, eris.Errorf("tabular: column %q moved twice", m.Column)
		}
		moving[m.Column] = true
	}

	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !moving[c] {
			out = append(out, c)
		}
	}

	ordered := slices.Clone(moves)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	for _, m := range ordered {
		pos := min(max(m.Position, 0), len(out))
		out = slices.Insert(out, pos, m.Column)
	}
	return out, nil
}

// MoveColumns reorders the table's columns (header and every row) by moves.
func (t *Table) MoveColumns(moves []Move) error {
	order, err := Reorder(t.Header, moves)
	if err != nil {
		return err
	}
	t.Project(order)
	return nil
}

// Project rewrites the table to exactly the given columns in the given order.
// Unknown columns are filled with "".
func (t *Table) Project(columns []string) {
	idx := make([]int, len(columns))
	for j, c := range columns {
		idx[j] = t.Column(c)
	}
	for i, row := range t.Rows {
		next := make([]string, len(columns))
		for j, src := range idx {
			if src >= 0 && src < len(row) {
				next[j] = row[src]
			}
		}
		t.Rows[i] = next
	}
	t.Header = append([]string(nil), columns...)
}
