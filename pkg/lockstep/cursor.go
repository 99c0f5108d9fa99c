package lockstep

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Member is one named store of a Set.
type Member struct {
	Name  string
	Store storage.OrderedStore
}

// Set is a group of stores traversed in lockstep.
type Set []Member

// Names returns the member names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name
	}
	return names
}

// Cursor opens one iterator per member. The caller must Close it.
func (s Set) Cursor() (*Cursor, error) {
	if len(s) == 0 {
		return nil, errors.New("lockstep set has no stores")
	}
	c := &Cursor{names: s.Names(), its: make([]storage.Iterator, 0, len(s))}
	for _, m := range s {
		it, err := m.Store.NewIterator()
		if err != nil {
			_ = c.Close()
			return nil, errors.Wrapf(err, "opening iterator on %s", m.Name)
		}
		c.its = append(c.its, it)
	}
	return c, nil
}

// Keys runs a full validation pass and returns every key in traversal order.
func (s Set) Keys() ([][]byte, error) {
	c, err := s.Cursor()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var keys [][]byte
	for c.Next() {
		keys = append(keys, c.Key())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Count runs a full validation pass and returns the number of aligned keys.
func (s Set) Count() (int, error) {
	c, err := s.Cursor()
	if err != nil {
		return 0, err
	}
	defer c.Close()

	for c.Next() {
	}
	if err := c.Err(); err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Cursor is a single-pass, validated walk over a Set. It is not restartable.
type Cursor struct {
	names   []string
	its     []storage.Iterator
	started bool
	done    bool
	count   int
	key     []byte
	err     error
}

// Next advances every iterator once and validates the new position. It
// returns false when the stores are exhausted together or on the first
// violation, which Err then reports.
func (c *Cursor) Next() bool {
	if c.done || c.err != nil {
		return false
	}
	if !c.started {
		c.started = true
		for _, it := range c.its {
			it.First()
		}
	} else {
		for _, it := range c.its {
			it.Next()
		}
	}
	return c.check()
}

func (c *Cursor) check() bool {
	valid := make([]bool, len(c.its))
	for i, it := range c.its {
		valid[i] = it.Valid()
		if !valid[i] {
			if err := it.Error(); err != nil {
				c.err = errors.Wrapf(err, "store %s", c.names[i])
				return false
			}
		}
	}

	for i := 1; i < len(valid); i++ {
		if valid[i] != valid[0] {
			c.err = &ValidationError{
				Kind:     ErrInconsistentState,
				Position: c.count,
				Stores:   c.names,
				Valid:    valid,
			}
			return false
		}
	}

	if !valid[0] {
		c.done = true
		c.key = nil
		return false
	}

	first := c.its[0].Key()
	for i := 1; i < len(c.its); i++ {
		if key := c.its[i].Key(); !bytes.Equal(first, key) {
			c.err = &ValidationError{
				Kind:     ErrKeyMismatch,
				Position: c.count,
				Stores:   c.names,
				Keys:     [][]byte{append([]byte(nil), first...), append([]byte(nil), key...)},
				Pair:     [2]int{0, i},
			}
			return false
		}
	}

	c.key = append(c.key[:0], first...)
	c.count++
	return true
}

// Key returns a copy of the current aligned key.
func (c *Cursor) Key() []byte {
	return append([]byte(nil), c.key...)
}

// Value returns a copy of member i's value at the current position.
func (c *Cursor) Value(i int) []byte {
	return append([]byte(nil), c.its[i].Value()...)
}

// Values returns a copy of every member's value at the current position.
func (c *Cursor) Values() [][]byte {
	values := make([][]byte, len(c.its))
	for i := range c.its {
		values[i] = c.Value(i)
	}
	return values
}

// Count returns the number of keys produced so far.
func (c *Cursor) Count() int {
	return c.count
}

// Err returns the error that ended the traversal, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases every iterator.
func (c *Cursor) Close() error {
	var first error
	for _, it := range c.its {
		if err := it.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.its = nil
	return first
}
