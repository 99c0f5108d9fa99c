// Package storage provides the ordered key-value stores datumkit reads and
// writes. Stores are pebble databases; every store is a directory holding one
// database.
package storage

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrStore marks every failure reported by the storage engine.
	ErrStore = errors.New("store error")

	// ErrNotFound is returned by Get when a key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrExists is returned when opening an output store that already exists
	// while ErrorIfExists is set.
	ErrExists = errors.New("store already exists")

	// ErrMissing is returned when opening a store that does not exist while
	// CreateIfMissing is unset.
	ErrMissing = errors.New("store does not exist")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Iterator walks a store in ascending key order. Key and Value are valid
// only until the iterator is repositioned; callers that keep them must copy.
type Iterator interface {
	First() bool
	Last() bool
	SeekGE(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// OrderedStore is the minimum surface datumkit needs from a storage engine.
type OrderedStore interface {
	Path() string
	NewIterator() (Iterator, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Close() error
}

// Options controls how a store is opened.
type Options struct {
	CreateIfMissing bool
	ErrorIfExists   bool
	ReadOnly        bool
	Truncate        bool // delete existing keys after opening
}

// InputOptions opens an existing store for reading.
func InputOptions() Options {
	return Options{ReadOnly: true}
}

// OutputOptions opens a fresh output store. With overwrite set, an existing
// store at the same path is emptied and reused instead of rejected.
func OutputOptions(overwrite bool) Options {
	return Options{CreateIfMissing: true, ErrorIfExists: !overwrite, Truncate: overwrite}
}

// Opener opens stores by path.
type Opener interface {
	Open(path string, opts Options) (OrderedStore, error)
}

// CloseAll closes every non-nil store and returns the first error.
func CloseAll(stores ...OrderedStore) error {
	var first error
	for _, s := range stores {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
