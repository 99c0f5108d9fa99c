package lockstep

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInconsistentState means some stores were exhausted while others still
	// had records: the stores differ in length.
	ErrInconsistentState = errors.New("inconsistent iterator state")

	// ErrKeyMismatch means two stores held different keys at the same position.
	ErrKeyMismatch = errors.New("differing keys")
)

// ValidationError describes where and how an aligned set diverged.
type ValidationError struct {
	Kind     error    // ErrInconsistentState or ErrKeyMismatch
	Position int      // zero-based step at which the divergence was seen
	Stores   []string // names of all stores in the set
	Valid    []bool   // per-store validity at Position (InconsistentState)
	Keys     [][]byte // the two differing keys (KeyMismatch)
	Pair     [2]int   // indices into Stores of the two differing stores (KeyMismatch)
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrKeyMismatch:
		return fmt.Sprintf("%s at position %d: %s has %q, %s has %q",
			e.Kind, e.Position,
			e.Stores[e.Pair[0]], e.Keys[0],
			e.Stores[e.Pair[1]], e.Keys[1])
	default:
		var exhausted, remaining []string
		for i, valid := range e.Valid {
			if valid {
				remaining = append(remaining, e.Stores[i])
			} else {
				exhausted = append(exhausted, e.Stores[i])
			}
		}
		return fmt.Sprintf("%s at position %d: exhausted [%s], still valid [%s]",
			e.Kind, e.Position, strings.Join(exhausted, ", "), strings.Join(remaining, ", "))
	}
}

// Unwrap lets errors.Is match the Kind sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}
