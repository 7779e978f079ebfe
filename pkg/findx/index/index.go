// Package index provides the durable file index for findx, backed by
// Badger DB. One store holds any number of roots. Each root's entries
// live under a generation prefix named by the root's header: a build or
// refresh writes the new state under a fresh generation in batches,
// then flips the header in one small transaction, so an in-flight
// iteration reflects either the old or the new state of a root, never a
// mix, and tree size is not bounded by a single transaction.
package index

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/findx/pkg/findx/hash"
	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/scanner"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// ErrNotFound is returned when a path has no entry in the index.
var ErrNotFound = errors.New("entry not found")

// ErrNoIndex is returned when a root has never been indexed.
var ErrNoIndex = errors.New("root not indexed")

// ErrCorruptIndex indicates a stored index whose header or records
// could not be decoded, or whose format version is incompatible.
// Callers recover by forcing a rebuild; Refresh does so itself.
var ErrCorruptIndex = errors.New("corrupt index")

// ErrNotHashable is returned when a content hash is requested for a
// directory or symlink entry.
var ErrNotHashable = errors.New("entry is not a regular file")

// Store is the index storage backed by Badger DB.
//
// Writers to the same root serialize on a per-root mutex; operations on
// different roots are fully independent. Read operations never block on
// writers.
type Store struct {
	db           *badger.DB
	scanner      *scanner.Scanner
	hasher       hash.Hasher
	memTableSize int64

	rootLocksMu sync.Mutex
	rootLocks   map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithHasher sets the content hasher. Defaults to hash.SHA256.
func WithHasher(h hash.Hasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithScanner sets the scanner used by Build and Refresh.
func WithScanner(sc *scanner.Scanner) Option {
	return func(s *Store) { s.scanner = sc }
}

// WithMemTableSize overrides badger's default memtable size, bounding
// the store's memory on small deployments. Index writes are batched, so
// tree size is unaffected by the size chosen.
func WithMemTableSize(bytes int64) Option {
	return func(s *Store) { s.memTableSize = bytes }
}

// Open opens or creates a store at the given directory.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		scanner:   scanner.New(scanner.Options{}),
		hasher:    hash.SHA256,
		rootLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil // Disable badger logging
	if s.memTableSize > 0 {
		badgerOpts = badgerOpts.WithMemTableSize(s.memTableSize)
		// Badger rejects a value threshold above its per-batch limit,
		// which shrinks with the memtable.
		if vt := s.memTableSize / 16; vt < badgerOpts.ValueThreshold {
			badgerOpts = badgerOpts.WithValueThreshold(vt)
		}
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// rootLock returns the writer mutex for a root, creating it on first use.
func (s *Store) rootLock(root string) *sync.Mutex {
	s.rootLocksMu.Lock()
	defer s.rootLocksMu.Unlock()

	mu, ok := s.rootLocks[root]
	if !ok {
		mu = &sync.Mutex{}
		s.rootLocks[root] = mu
	}
	return mu
}

// normalizeRoot resolves a root to its absolute, cleaned form. All
// store keyspaces use the normalized root.
func normalizeRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Get retrieves the indexed entry for path under root.
// Returns ErrNotFound if the path is not in the index and ErrNoIndex
// if the root has never been indexed.
func (s *Store) Get(root, path string) (*types.FileEntry, error) {
	root, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}

	var entry types.FileEntry
	err = s.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn, root)
		if err != nil {
			return err
		}

		item, err := txn.Get(entryKey(root, m.Gen, rel))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var rec record
			if err := rec.decode(val); err != nil {
				return fmt.Errorf("%w: %s", ErrCorruptIndex, path)
			}
			entry = rec.toEntry(path)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// All returns every indexed entry under root, sorted by path. The
// header and entries are read in a single transaction, so the result
// reflects one consistent generation; concurrent refreshes do not alter
// it.
func (s *Store) All(root string) ([]types.FileEntry, error) {
	root, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	var entries []types.FileEntry
	err = s.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn, root)
		if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := entryPrefix(root, m.Gen)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rel := relFromKey(root, m.Gen, item.Key())
			err := item.Value(func(val []byte) error {
				var rec record
				if err := rec.decode(val); err != nil {
					return fmt.Errorf("%w: %s", ErrCorruptIndex, rel)
				}
				entries = append(entries, rec.toEntry(filepath.Join(root, rel)))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// HasIndex reports whether root has a readable index of the current
// format version.
func (s *Store) HasIndex(root string) bool {
	root, err := normalizeRoot(root)
	if err != nil {
		return false
	}
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readMeta(txn, root)
		return err
	})
	return err == nil
}

// readMeta reads and verifies the root's header inside txn. Decode
// failures and version or root mismatches fail closed as
// ErrCorruptIndex; a missing header is ErrNoIndex.
func readMeta(txn *badger.Txn, root string) (*meta, error) {
	item, err := txn.Get(metaKey(root))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoIndex
	}
	if err != nil {
		return nil, err
	}

	var m meta
	err = item.Value(func(val []byte) error {
		if err := m.decode(val); err != nil {
			return fmt.Errorf("%w: unreadable header for %s", ErrCorruptIndex, root)
		}
		if m.Version != FormatVersion {
			return fmt.Errorf("%w: format version %d, want %d", ErrCorruptIndex, m.Version, FormatVersion)
		}
		if m.Root != root {
			return fmt.Errorf("%w: header root %q does not match %q", ErrCorruptIndex, m.Root, root)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EnsureHash returns the content hash for path under root, computing
// and persisting it on first access. The stored hash is reused until
// the entry's size or mtime changes, at which point Refresh clears it.
//
// Persisting is a same-root write: it takes the root's writer lock and
// re-checks the stored record, so a digest of a superseded snapshot is
// never written over a fresher one.
func (s *Store) EnsureHash(root, path string) (string, error) {
	nroot, err := normalizeRoot(root)
	if err != nil {
		return "", err
	}

	entry, err := s.Get(nroot, path)
	if err != nil {
		return "", err
	}
	if entry.Kind != types.KindFile {
		return "", fmt.Errorf("%w: %s", ErrNotHashable, path)
	}
	if entry.ContentHash != "" {
		return entry.ContentHash, nil
	}

	digest, err := s.hasher(path)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(nroot, path)
	if err != nil {
		return "", err
	}

	mu := s.rootLock(nroot)
	mu.Lock()
	defer mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		m, err := readMeta(txn, nroot)
		if err != nil {
			return err
		}

		item, err := txn.Get(entryKey(nroot, m.Gen, rel))
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Entry removed while hashing; nothing to persist.
			return nil
		}
		if err != nil {
			return err
		}

		var rec record
		if err := item.Value(func(val []byte) error { return rec.decode(val) }); err != nil {
			return fmt.Errorf("%w: %s", ErrCorruptIndex, path)
		}
		if rec.Size != entry.Size || rec.MtimeNano != entry.ModTime.UnixNano() {
			// The entry changed while hashing. The fresher record wins;
			// the hash is recomputed on next request.
			return nil
		}

		rec.Hash = digest
		data, err := rec.encode()
		if err != nil {
			return err
		}
		return txn.Set(entryKey(nroot, m.Gen, rel), data)
	})
	if err != nil {
		logging.Get("index").Warn("failed to persist content hash", "path", path, "error", err)
	}
	return digest, nil
}
