package extract

import (
	"regexp"
	"strings"
)

// listSeparator joins list-field values into a single table cell.
const listSeparator = "; "

// Record is one normalized output row. It is built once by Extract and only
// read afterwards.
type Record struct {
	columns []string
	scalars map[string]*string
	lists   map[string][]string
}

// Columns returns the record's field names in schema order.
func (r Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Scalar returns a scalar field. ok is false for unknown names; the value is
// nil when a derived field did not match.
func (r Record) Scalar(name string) (value *string, ok bool) {
	v, ok := r.scalars[name]
	if !ok || v == nil {
		return nil, ok
	}
	s := *v
	return &s, true
}

// List returns a copy of a list field, or nil for unknown names.
func (r Record) List(name string) []string {
	l, ok := r.lists[name]
	if !ok {
		return nil
	}
	return append(make([]string, 0, len(l)), l...)
}

// Value renders a single field as a table cell. Absent values are "".
func (r Record) Value(name string) string {
	if l, ok := r.lists[name]; ok {
		return strings.Join(l, listSeparator)
	}
	if v := r.scalars[name]; v != nil {
		return *v
	}
	return ""
}

// Values renders the named fields as table cells in the given order.
func (r Record) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}

// Extract walks rows and fills every field the schema names. A positional or
// derived index past the end of the value sequence returns *ExtractionError;
// list fields with no matching section are empty, not an error.
func Extract(rows []Row, schema Schema) (Record, error) {
	frags := Walk(rows)
	if schema.SkipUnsectioned {
		frags = sectioned(frags)
	}

	values := make([]string, len(frags))
	for i, f := range frags {
		values[i] = f.Value
	}

	rec := Record{
		columns: schema.Columns(),
		scalars: make(map[string]*string),
		lists:   make(map[string][]string),
	}

	for _, f := range schema.Positional {
		parts := make([]string, 0, len(f.Indexes))
		for _, idx := range f.Indexes {
			v, err := valueAt(values, idx, f.Name)
			if err != nil {
				return Record{}, err
			}
			parts = append(parts, v)
		}
		joined := strings.Join(parts, " ")
		rec.scalars[f.Name] = &joined
	}

	for _, d := range schema.Derived {
		v, err := valueAt(values, d.Index, d.City)
		if err != nil {
			return Record{}, err
		}
		csz := DeriveCityStateZip(v)
		rec.scalars[d.City] = csz.City
		rec.scalars[d.State] = csz.State
		rec.scalars[d.Zip] = csz.Zip
	}

	for _, l := range schema.Lists {
		rec.lists[l.Name] = collect(frags, l.Sections)
	}

	return rec, nil
}

func valueAt(values []string, idx int, field string) (string, error) {
	if idx < 0 || idx >= len(values) {
		return "", &ExtractionError{
			Kind:   IndexOutOfRange,
			Field:  field,
			Index:  idx,
			Length: len(values),
		}
	}
	return values[idx], nil
}

func sectioned(frags []Fragment) []Fragment {
	out := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if f.Section != nil {
			out = append(out, f)
		}
	}
	return out
}

// collect returns the values of fragments whose section matches any label,
// in encounter order. It never returns nil.
func collect(frags []Fragment, labels []string) []string {
	out := []string{}
	for _, f := range frags {
		for _, label := range labels {
			if f.InSection(label) {
				out = append(out, f.Value)
				break
			}
		}
	}
	return out
}

var cityStateZipRe = regexp.MustCompile(`^(.*?),\s*([A-Z]{2})\s*(\d{5})$`)

// CityStateZip is the result of DeriveCityStateZip. All three fields are nil
// when the input does not match.
type CityStateZip struct {
	City  *string
	State *string
	Zip   *string
}

// DeriveCityStateZip splits a single "City, ST 12345" line. It is stricter
// than address.Split: the state must be two capitals and the zip five digits.
func DeriveCityStateZip(s string) CityStateZip {
	m := cityStateZipRe.FindStringSubmatch(s)
	if m == nil {
		return CityStateZip{}
	}
	city, state, zip := m[1], m[2], m[3]
	return CityStateZip{City: &city, State: &state, Zip: &zip}
}
