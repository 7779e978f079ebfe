package index

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// Build performs a full scan of root and replaces any existing index
// for it. Returns the number of entries indexed. Unreadable subtrees
// are skipped and logged; they do not fail the build.
func (s *Store) Build(ctx context.Context, root string) (int, error) {
	root, err := normalizeRoot(root)
	if err != nil {
		return 0, err
	}

	mu := s.rootLock(root)
	mu.Lock()
	defer mu.Unlock()

	return s.buildLocked(ctx, root)
}

// buildLocked is Build without acquiring the root lock. The caller must
// hold it.
func (s *Store) buildLocked(ctx context.Context, root string) (int, error) {
	start := time.Now()

	result, err := s.scanner.Scan(ctx, root, true)
	if err != nil {
		return 0, err
	}

	recs := make(map[string][]byte, len(result.Entries))
	for i := range result.Entries {
		rel, err := filepath.Rel(root, result.Entries[i].Path)
		if err != nil {
			return 0, err
		}
		data, err := toRecord(&result.Entries[i]).encode()
		if err != nil {
			return 0, err
		}
		recs[rel] = data
	}

	if err := s.swapGeneration(root, recs); err != nil {
		return 0, err
	}

	logging.Get("index").Info("index built",
		"root", root,
		"entries", len(recs),
		"scan_errors", len(result.Errors),
		"elapsed", time.Since(start))
	return len(recs), nil
}

// Refresh walks the live tree under root and reconciles the stored
// index against it. Entries whose size and mtime are unchanged keep
// their stored snapshot, including any cached content hash. Changed
// entries are re-stat'ed with the hash cleared; it is recomputed only
// when next requested. Stored paths missing from the walk are removed.
//
// A rename is observed as one removal plus one addition; the store does
// no rename tracking.
//
// A missing, corrupt, or version-incompatible index forces a full build
// instead of failing, with every entry reported as added.
func (s *Store) Refresh(ctx context.Context, root string) (types.RefreshStats, error) {
	start := time.Now()

	root, err := normalizeRoot(root)
	if err != nil {
		return types.RefreshStats{}, err
	}

	mu := s.rootLock(root)
	mu.Lock()
	defer mu.Unlock()

	stored, err := s.loadRecords(root)
	if errors.Is(err, ErrNoIndex) || errors.Is(err, ErrCorruptIndex) {
		logging.Get("index").Warn("index unusable, rebuilding", "root", root, "reason", err)
		n, err := s.buildLocked(ctx, root)
		if err != nil {
			return types.RefreshStats{}, err
		}
		return types.RefreshStats{Added: n, Elapsed: time.Since(start)}, nil
	}
	if err != nil {
		return types.RefreshStats{}, err
	}

	result, err := s.scanner.Scan(ctx, root, true)
	if err != nil {
		return types.RefreshStats{}, err
	}

	var stats types.RefreshStats
	now := time.Now()
	recs := make(map[string][]byte, len(result.Entries))

	for i := range result.Entries {
		entry := &result.Entries[i]
		rel, err := filepath.Rel(root, entry.Path)
		if err != nil {
			return types.RefreshStats{}, err
		}

		old, ok := stored[rel]
		switch {
		case !ok:
			stats.Added++
		case old.Size != entry.Size || old.MtimeNano != entry.ModTime.UnixNano() || old.Kind != int(entry.Kind):
			stats.Changed++
		default:
			// Unchanged: the cached hash stays valid under the
			// (size, mtime) invalidation key.
			entry.ContentHash = old.Hash
		}
		entry.IndexedAt = now

		data, err := toRecord(entry).encode()
		if err != nil {
			return types.RefreshStats{}, err
		}
		recs[rel] = data
	}

	for rel := range stored {
		if _, ok := recs[rel]; !ok {
			stats.Removed++
		}
	}

	if err := s.swapGeneration(root, recs); err != nil {
		return types.RefreshStats{}, err
	}

	stats.Elapsed = time.Since(start)
	logging.Get("index").Info("index refreshed",
		"root", root,
		"added", stats.Added,
		"removed", stats.Removed,
		"changed", stats.Changed,
		"elapsed", stats.Elapsed)
	return stats, nil
}

// swapGeneration replaces the root's index with recs. The new state is
// written under a fresh generation with a write batch, which splits
// large trees across transactions, then the root's header is flipped to
// the new generation in one small transaction. A reader that opened its
// snapshot before the flip keeps iterating the previous generation;
// readers after the flip see the complete new state. Stale generations,
// including leftovers of interrupted writes that never flipped the
// header, are swept afterwards.
//
// The caller must hold the root lock.
func (s *Store) swapGeneration(root string, recs map[string][]byte) error {
	gen := s.nextGen(root)

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for rel, data := range recs {
		if err := wb.Set(entryKey(root, gen, rel), data); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	m := meta{
		Version:   FormatVersion,
		Root:      root,
		Gen:       gen,
		BuiltNano: time.Now().UnixNano(),
		Entries:   len(recs),
	}
	data, err := m.encode()
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(root), data)
	})
	if err != nil {
		return err
	}

	if err := s.dropStaleGenerations(root, gen); err != nil {
		logging.Get("index").Warn("failed to sweep stale index state", "root", root, "error", err)
	}
	return nil
}

// nextGen picks a generation strictly greater than the root's current
// one. Nanosecond timestamps keep generations from colliding with
// leftovers of interrupted writes.
func (s *Store) nextGen(root string) uint64 {
	gen := uint64(time.Now().UnixNano())

	_ = s.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn, root)
		if err == nil && gen <= m.Gen {
			gen = m.Gen + 1
		}
		return nil
	})
	return gen
}

// dropStaleGenerations deletes every entry key of root outside the keep
// generation.
func (s *Store) dropStaleGenerations(root string, keep uint64) error {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := rootPrefix(root)
		keepPrefix := entryPrefix(root, keep)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), keepPrefix) {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// loadRecords reads the stored records for root into a map keyed by
// relative path. Returns ErrNoIndex or ErrCorruptIndex when the root's
// index is unusable.
func (s *Store) loadRecords(root string) (map[string]*record, error) {
	records := make(map[string]*record)

	err := s.db.View(func(txn *badger.Txn) error {
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
					return ErrCorruptIndex
				}
				records[rel] = &rec
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
	return records, nil
}
