// Package extract reduces sequences of labeled page rows into fixed-schema records.
package extract

// Row is one scraped table row. A header row sets the section for the rows
// that follow it; a data row carries one or more cell values.
type Row struct {
	Header   string
	IsHeader bool
	Values   []string
}

// HeaderRow returns a section-header row with the given label.
func HeaderRow(label string) Row {
	return Row{Header: label, IsHeader: true}
}

// DataRow returns a data row carrying the given cell values.
func DataRow(values ...string) Row {
	return Row{Values: values}
}

// Fragment is one value from a data row, tagged with the section that was
// active when the row was seen. Section is nil before the first header.
type Fragment struct {
	Section *string
	Value   string
}

// InSection reports whether the fragment's section label equals label exactly.
func (f Fragment) InSection(label string) bool {
	return f.Section != nil && *f.Section == label
}

// walkState is the row-walk state: nil section is NO_SECTION, anything else
// is IN_SECTION(label).
type walkState struct {
	section *string
}

// step consumes one row and returns the next state plus the fragments it emits.
func (s walkState) step(r Row) (walkState, []Fragment) {
	if r.IsHeader {
		label := r.Header
		return walkState{section: &label}, nil
	}
	out := make([]Fragment, 0, len(r.Values))
	for _, v := range r.Values {
		out = append(out, Fragment{Section: s.section, Value: v})
	}
	return s, out
}

// Walk flattens rows into fragments in encounter order. Header rows emit
// nothing; every data-row value is tagged with the current section.
func Walk(rows []Row) []Fragment {
	var (
		state walkState
		out   []Fragment
		emit  []Fragment
	)
	for _, r := range rows {
		state, emit = state.step(r)
		out = append(out, emit...)
	}
	return out
}
