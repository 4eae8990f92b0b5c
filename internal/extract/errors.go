package extract

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrorKind classifies extraction failures.
type ErrorKind int

const (
	// IndexOutOfRange means a positional field points past the end of the
	// flattened value sequence, usually because the page layout changed.
	IndexOutOfRange ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case IndexOutOfRange:
		return "index_out_of_range"
	default:
		return "unknown"
	}
}

// ErrIndexOutOfRange matches any *ExtractionError of kind IndexOutOfRange via errors.Is.
var ErrIndexOutOfRange = eris.New("extract: index out of range")

// ExtractionError reports why a record could not be produced from a page.
type ExtractionError struct {
	Kind   ErrorKind
	Field  string
	Index  int
	Length int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: field %q: %s: index %d, %d values", e.Field, e.Kind, e.Index, e.Length)
}

// Is lets errors.Is match the kind sentinel.
func (e *ExtractionError) Is(target error) bool {
	return e.Kind == IndexOutOfRange && target == ErrIndexOutOfRange
}
