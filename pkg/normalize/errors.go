package normalize

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidInterval is returned when the target interval is empty or reversed.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrDegenerateRange is returned when a field never varies or holds a
	// NaN or infinite value, so no finite slope maps it onto the target
	// interval.
	ErrDegenerateRange = errors.New("degenerate range")
)

// DegenerateRangeError lists every field whose minimum equals its maximum,
// and every field whose observed range is not finite.
type DegenerateRangeError struct {
	Fields []int     // indices of constant fields
	Values []float64 // the constant value of each field
	// NonFinite holds indices of fields whose min or max is NaN or infinite.
	NonFinite []int
}

func (e *DegenerateRangeError) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.NonFinite))
	for i, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("field %d is constant at %g", f, e.Values[i]))
	}
	for _, f := range e.NonFinite {
		parts = append(parts, fmt.Sprintf("field %d has a NaN or infinite value", f))
	}
	return fmt.Sprintf("%s: %s", ErrDegenerateRange, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrDegenerateRange.
func (e *DegenerateRangeError) Unwrap() error {
	return ErrDegenerateRange
}
