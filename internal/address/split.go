// Package address splits free-text postal addresses into street, city, state and zip.
package address

import (
	"strings"
)

// minSegments is the fewest comma-separated segments that can be split
// unambiguously into street, city and state+zip.
const minSegments = 3

// ParsedAddress holds the components of a split address. A nil field means
// the component was absent from the input.
type ParsedAddress struct {
	Street *string `json:"street"`
	City   *string `json:"city"`
	State  *string `json:"state"`
	Zip    *string `json:"zip"`
}

// Split parses a comma-delimited address of the form
// "street[, more street], city, STATE ZIP". It never fails: absent or
// unparseable input yields a ParsedAddress with every field nil.
//
// The state+zip segment is split on whitespace, so "Durham, NC" with no zip
// still yields a state while Zip stays nil.
func Split(raw *string) ParsedAddress {
	if raw == nil {
		return ParsedAddress{}
	}

	parts := strings.Split(*raw, ",")
	if len(parts) < minSegments {
		return ParsedAddress{}
	}

	n := len(parts)
	street := strings.TrimSpace(strings.Join(parts[:n-2], ","))
	city := strings.TrimSpace(parts[n-2])

	var out ParsedAddress
	out.Street = &street
	out.City = &city

	tokens := strings.Fields(parts[n-1])
	if len(tokens) > 0 {
		state := tokens[0]
		out.State = &state
	}
	if len(tokens) > 1 {
		zip := tokens[1]
		out.Zip = &zip
	}
	return out
}

// SplitString is Split for tabular cells, where an empty or blank cell means
// the address is absent.
func SplitString(s string) ParsedAddress {
	if strings.TrimSpace(s) == "" {
		return ParsedAddress{}
	}
	return Split(&s)
}

// Empty reports whether no component was parsed.
func (p ParsedAddress) Empty() bool {
	return p.Street == nil && p.City == nil && p.State == nil && p.Zip == nil
}

// Fields returns street, city, state and zip with absent components as "".
func (p ParsedAddress) Fields() (street, city, state, zip string) {
	return deref(p.Street), deref(p.City), deref(p.State), deref(p.Zip)
}

// OneLine renders the address as "street, city, state, zip", skipping
// absent or blank components.
func (p ParsedAddress) OneLine() string {
	street, city, state, zip := p.Fields()
	var parts []string
	for _, s := range []string{street, city, state, zip} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
