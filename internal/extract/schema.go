package extract

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Schema maps the flattened value sequence of a page onto named output fields.
// It is plain configuration: a page layout change is a new schema version,
// not a code change.
type Schema struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`

	// SkipUnsectioned drops values seen before the first section header
	// before positional lookups.
	SkipUnsectioned bool `yaml:"skip_unsectioned,omitempty"`

	Positional []PositionalField `yaml:"positional"`
	Derived    []DerivedField    `yaml:"derived,omitempty"`
	Lists      []ListField       `yaml:"lists,omitempty"`
}

// PositionalField reads one value by index, or joins several with a single
// space when more than one index is given (e.g. a two-line mailing address).
type PositionalField struct {
	Name    string `yaml:"name"`
	Indexes []int  `yaml:"indexes,flow"`
}

// DerivedField splits the "City, ST 12345" value at Index into three fields.
type DerivedField struct {
	Index int    `yaml:"index"`
	City  string `yaml:"city"`
	State string `yaml:"state"`
	Zip   string `yaml:"zip"`
}

// Names returns the three output field names in city, state, zip order.
func (d DerivedField) Names() []string {
	return []string{d.City, d.State, d.Zip}
}

// ListField collects every value whose section label matches one of Sections.
type ListField struct {
	Name     string   `yaml:"name"`
	Sections []string `yaml:"sections,flow"`
}

// Columns returns every output field name in record order: positional, then
// derived, then list fields.
func (s Schema) Columns() []string {
	var cols []string
	for _, f := range s.Positional {
		cols = append(cols, f.Name)
	}
	for _, d := range s.Derived {
		cols = append(cols, d.Names()...)
	}
	for _, l := range s.Lists {
		cols = append(cols, l.Name)
	}
	return cols
}

// MaxIndex returns the largest index any positional or derived field reads,
// or -1 when the schema has none.
func (s Schema) MaxIndex() int {
	maxIdx := -1
	for _, f := range s.Positional {
		for _, i := range f.Indexes {
			maxIdx = max(maxIdx, i)
		}
	}
	for _, d := range s.Derived {
		maxIdx = max(maxIdx, d.Index)
	}
	return maxIdx
}

// Validate checks that field names are present and unique and that indexes
// are usable.
func (s Schema) Validate() error {
	seen := make(map[string]bool)
	claim := func(name string) error {
		if name == "" {
			return eris.New("schema: empty field name")
		}
		if seen[name] {
			return eris.Errorf("schema: duplicate field %q", name)
		}
		seen[name] = true
		return nil
	}

	for _, f := range s.Positional {
		if err := claim(f.Name); err != nil {
			return err
		}
		if len(f.Indexes) == 0 {
			return eris.Errorf("schema: field %q has no indexes", f.Name)
		}
		for _, i := range f.Indexes {
			if i < 0 {
				return eris.Errorf("schema: field %q has negative index %d", f.Name, i)
			}
		}
	}
	for _, d := range s.Derived {
		if d.Index < 0 {
			return eris.Errorf("schema: derived field has negative index %d", d.Index)
		}
		for _, name := range d.Names() {
			if err := claim(name); err != nil {
				return err
			}
		}
	}
	for _, l := range s.Lists {
		if err := claim(l.Name); err != nil {
			return err
		}
		if len(l.Sections) == 0 {
			return eris.Errorf("schema: list field %q has no sections", l.Name)
		}
	}
	return nil
}

// ParseSchema decodes and validates a YAML schema.
func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, eris.Wrap(err, "schema: decode yaml")
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// LoadSchema reads a YAML schema file.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, eris.Wrapf(err, "schema: read %s", path)
	}
	return ParseSchema(data)
}

// Encode renders the schema as YAML.
func (s Schema) Encode() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "schema: encode yaml")
	}
	return out, nil
}

// Section labels on the NC State Laboratory of Public Health lab detail page.
const (
	SectionSOC          = "SYNTHETIC ORGANIC (SOC)"
	SectionVOC          = "VOLATILE ORGANIC (VOC)"
	SectionInorganic    = "INORGANIC"
	SectionMicrobiology = "MICROBIOLOGY"
)

// CertifiedLabsSchema is the layout of the certified laboratory detail page.
// Index 11 is the "City, ST 12345" line of the mailing address.
func CertifiedLabsSchema() Schema {
	return Schema{
		Name:            "nc-certified-labs",
		Version:         1,
		SkipUnsectioned: true,
		Positional: []PositionalField{
			{Name: "Lab Name", Indexes: []int{1}},
			{Name: "Lab Number", Indexes: []int{4}},
			{Name: "Mailing Address", Indexes: []int{9, 11}},
			{Name: "Phone", Indexes: []int{16}},
			{Name: "Fax", Indexes: []int{19}},
		},
		Derived: []DerivedField{
			{Index: 11, City: "City", State: "State", Zip: "Zip"},
		},
		Lists: []ListField{
			{Name: "Synthetic Organic Compounds", Sections: []string{SectionSOC}},
			{Name: "Volatile Organic Compounds", Sections: []string{SectionVOC}},
			{Name: "Inorganic", Sections: []string{SectionInorganic}},
			{Name: "Microbiology", Sections: []string{SectionMicrobiology}},
		},
	}
}
