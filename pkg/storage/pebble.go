package storage

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"k8s.io/klog/v2"
)

// PebbleConfig holds engine settings shared by every store a PebbleOpener opens.
type PebbleConfig struct {
	FS           vfs.FS // nil means the OS filesystem
	Compression  string // none, snappy or zstd
	CacheSizeMB  int64
	MaxOpenFiles int
	Sync         bool // fsync every write
}

// PebbleOpener opens pebble-backed stores.
type PebbleOpener struct {
	config PebbleConfig
}

// NewPebbleOpener creates an opener for the given engine settings.
func NewPebbleOpener(config PebbleConfig) *PebbleOpener {
	return &PebbleOpener{config: config}
}

// NewMemOpener returns an opener whose stores live in a fresh in-memory
// filesystem. Stores reopened through the same opener see earlier writes.
func NewMemOpener() *PebbleOpener {
	return NewPebbleOpener(PebbleConfig{FS: vfs.NewMem()})
}

// Open implements Opener.
func (o *PebbleOpener) Open(path string, opts Options) (OrderedStore, error) {
	return OpenPebble(path, opts, o.config)
}

// PebbleStore is an OrderedStore backed by a pebble database.
type PebbleStore struct {
	path      string
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	readOnly  bool
	mutex     sync.Mutex
	closed    bool
}

// OpenPebble opens the pebble database at path.
func OpenPebble(path string, opts Options, config PebbleConfig) (*PebbleStore, error) {
	compression, err := parseCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	pebbleOpts := &pebble.Options{
		FS:               config.FS,
		ErrorIfExists:    opts.ErrorIfExists,
		ErrorIfNotExists: !opts.CreateIfMissing,
		ReadOnly:         opts.ReadOnly,
		Logger:           klogLogger{path: path},
		Levels:           []pebble.LevelOptions{{Compression: compression}},
	}
	if config.MaxOpenFiles > 0 {
		pebbleOpts.MaxOpenFiles = config.MaxOpenFiles
	}
	if config.CacheSizeMB > 0 {
		cache := pebble.NewCache(config.CacheSizeMB << 20)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	// A read-only open of a missing directory fails with an untyped error,
	// so check for it first.
	if opts.ReadOnly {
		fs := config.FS
		if fs == nil {
			fs = vfs.Default
		}
		if _, err := fs.Stat(path); oserror.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(ErrMissing, "opening %s", path), ErrStore)
		}
	}

	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	klog.V(2).Infof("Opened store %s", path)

	writeOpts := pebble.NoSync
	if config.Sync {
		writeOpts = pebble.Sync
	}
	s := &PebbleStore{path: path, db: db, writeOpts: writeOpts, readOnly: opts.ReadOnly}
	if opts.Truncate && !opts.ReadOnly {
		if err := s.truncate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// truncate deletes every key, so a reused output holds only what the next
// run writes.
func (s *PebbleStore) truncate() error {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "clearing %s", s.path), ErrStore)
	}
	if !it.First() {
		return it.Close()
	}
	first := append([]byte(nil), it.Key()...)
	it.Last()
	end := append(append([]byte(nil), it.Key()...), 0)
	if err := it.Close(); err != nil {
		return errors.Mark(errors.Wrapf(err, "clearing %s", s.path), ErrStore)
	}
	if err := s.db.DeleteRange(first, end, s.writeOpts); err != nil {
		return errors.Mark(errors.Wrapf(err, "clearing %s", s.path), ErrStore)
	}
	klog.V(2).Infof("Cleared existing store %s", s.path)
	return nil
}

func classifyOpenError(path string, err error) error {
	switch {
	case errors.Is(err, pebble.ErrDBAlreadyExists):
		return errors.Mark(errors.Wrapf(ErrExists, "opening %s", path), ErrStore)
	case errors.Is(err, pebble.ErrDBDoesNotExist):
		return errors.Mark(errors.Wrapf(ErrMissing, "opening %s", path), ErrStore)
	default:
		return errors.Mark(errors.Wrapf(err, "failed to open store %s", path), ErrStore)
	}
}

func parseCompression(name string) (pebble.Compression, error) {
	switch name {
	case "", "snappy":
		return pebble.SnappyCompression, nil
	case "zstd":
		return pebble.ZstdCompression, nil
	case "none":
		return pebble.NoCompression, nil
	default:
		return pebble.DefaultCompression, errors.Newf("unknown compression %q", name)
	}
}

// Path returns the directory the store was opened from.
func (s *PebbleStore) Path() string {
	return s.path
}

// NewIterator returns an unpositioned iterator over the whole store.
func (s *PebbleStore) NewIterator() (Iterator, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, errors.Mark(ErrClosed, ErrStore)
	}
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "creating iterator on %s", s.path), ErrStore)
	}
	return &pebbleIterator{it: it, path: s.path}, nil
}

// Get returns a copy of the value stored under key.
func (s *PebbleStore) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "key %q in %s", key, s.path)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "reading %q from %s", key, s.path), ErrStore)
	}
	defer closer.Close()

	return append([]byte(nil), value...), nil
}

// Put stores value under key.
func (s *PebbleStore) Put(key, value []byte) error {
	if s.readOnly {
		return errors.Mark(errors.Newf("store %s is read-only", s.path), ErrStore)
	}
	if err := s.db.Set(key, value, s.writeOpts); err != nil {
		return errors.Mark(errors.Wrapf(err, "writing %q to %s", key, s.path), ErrStore)
	}
	return nil
}

// Close flushes pending writes and closes the database.
func (s *PebbleStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if !s.readOnly {
		if err := s.db.Flush(); err != nil {
			_ = s.db.Close()
			return errors.Mark(errors.Wrapf(err, "flushing %s", s.path), ErrStore)
		}
	}
	if err := s.db.Close(); err != nil {
		return errors.Mark(errors.Wrapf(err, "closing %s", s.path), ErrStore)
	}
	return nil
}

type pebbleIterator struct {
	it   *pebble.Iterator
	path string
}

func (i *pebbleIterator) First() bool            { return i.it.First() }
func (i *pebbleIterator) Last() bool             { return i.it.Last() }
func (i *pebbleIterator) SeekGE(key []byte) bool { return i.it.SeekGE(key) }
func (i *pebbleIterator) Next() bool             { return i.it.Next() }
func (i *pebbleIterator) Prev() bool             { return i.it.Prev() }
func (i *pebbleIterator) Valid() bool            { return i.it.Valid() }
func (i *pebbleIterator) Key() []byte            { return i.it.Key() }
func (i *pebbleIterator) Value() []byte          { return i.it.Value() }

func (i *pebbleIterator) Error() error {
	if err := i.it.Error(); err != nil {
		return errors.Mark(errors.Wrapf(err, "iterating %s", i.path), ErrStore)
	}
	return nil
}

func (i *pebbleIterator) Close() error {
	if err := i.it.Close(); err != nil {
		return errors.Mark(errors.Wrapf(err, "closing iterator on %s", i.path), ErrStore)
	}
	return nil
}

// klogLogger routes pebble's own log output through klog.
type klogLogger struct {
	path string
}

func (l klogLogger) Infof(format string, args ...interface{}) {
	klog.V(3).InfoDepth(1, fmt.Sprintf("[%s] ", l.path)+fmt.Sprintf(format, args...))
}

func (l klogLogger) Errorf(format string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf("[%s] ", l.path)+fmt.Sprintf(format, args...))
}

func (l klogLogger) Fatalf(format string, args ...interface{}) {
	klog.FatalDepth(1, fmt.Sprintf("[%s] ", l.path)+fmt.Sprintf(format, args...))
}
