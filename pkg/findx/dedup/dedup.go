// Package dedup finds groups of files with identical content under an
// indexed root. Detection is two-phase: files are first bucketed by
// size, since files of distinct size cannot be equal, and only members
// of multi-file buckets are content-hashed. Hashes are computed through
// the index store's lazy accessor, so repeated runs over an unchanged
// tree hash nothing.
package dedup

import (
	"context"
	"errors"
	"sort"

	"github.com/jamesainslie/findx/pkg/findx/index"
	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// Options configures duplicate detection.
type Options struct {
	// IncludeEmpty reports zero-byte files as a duplicate group. They
	// are excluded by default: all empty files are trivially equal and
	// deleting them reclaims nothing.
	IncludeEmpty bool
}

// Detector finds duplicate files using the index store.
type Detector struct {
	store *index.Store
	opts  Options
}

// New creates a Detector backed by the given store.
func New(store *index.Store, opts Options) *Detector {
	return &Detector{store: store, opts: opts}
}

// FindDuplicates returns groups of content-identical regular files
// under root. The root is indexed first if no usable index exists.
//
// Groups are ordered by descending reclaimable bytes, then by first
// path; paths within a group are lexicographic. Directories and
// symlinks are never candidates.
func (d *Detector) FindDuplicates(ctx context.Context, root string) ([]types.DuplicateGroup, error) {
	entries, err := d.store.All(root)
	if errors.Is(err, index.ErrNoIndex) || errors.Is(err, index.ErrCorruptIndex) {
		if _, err := d.store.Build(ctx, root); err != nil {
			return nil, err
		}
		entries, err = d.store.All(root)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	// Phase 1: bucket by size.
	bySize := make(map[int64][]types.FileEntry)
	for _, e := range entries {
		if e.Kind != types.KindFile {
			continue
		}
		if e.Size == 0 && !d.opts.IncludeEmpty {
			continue
		}
		bySize[e.Size] = append(bySize[e.Size], e)
	}

	// Phase 2: confirm by content hash within multi-file buckets.
	log := logging.Get("dedup")
	byHash := make(map[string][]types.FileEntry)
	for _, bucket := range bySize {
		if len(bucket) < 2 {
			continue
		}
		for _, e := range bucket {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			digest, err := d.store.EnsureHash(root, e.Path)
			if err != nil {
				log.Warn("skipping unhashable file", "path", e.Path, "error", err)
				continue
			}
			e.ContentHash = digest
			byHash[digest] = append(byHash[digest], e)
		}
	}

	var groups []types.DuplicateGroup
	for digest, members := range byHash {
		if len(members) < 2 {
			continue
		}
		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = m.Path
		}
		sort.Strings(paths)
		groups = append(groups, types.DuplicateGroup{
			Hash:  digest,
			Size:  members[0].Size,
			Paths: paths,
		})
	}

	// Largest reclaimable savings first; ties break on first path so
	// repeated runs are deterministic.
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groups[i].ReclaimableBytes(), groups[j].ReclaimableBytes()
		if ri != rj {
			return ri > rj
		}
		return groups[i].Paths[0] < groups[j].Paths[0]
	})

	return groups, nil
}
