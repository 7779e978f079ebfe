// Package scanner provides directory tree traversal for the findx
// indexer. It walks a root with fastwalk, yielding one metadata snapshot
// per filesystem object. Content hashes are never computed here; hashing
// is deferred to the index store's lazy accessor.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// Options configures the scanner behavior.
type Options struct {
	// Exclude contains glob patterns for paths to skip during scanning.
	// Patterns are matched against the base name and the full path.
	Exclude []string

	// OnEntry, if set, is called for each entry as it is produced.
	// It must be safe to call from multiple goroutines.
	OnEntry func(types.FileEntry)
}

// Result contains the outcome of one scan.
type Result struct {
	// Entries are the discovered objects, sorted by path. The root
	// directory itself is not included.
	Entries []types.FileEntry

	// Errors are the per-path failures encountered and skipped.
	// A partial result with errors is still valid.
	Errors []types.ScanError

	// Elapsed is the total scan duration.
	Elapsed time.Duration
}

// Scanner walks directory trees and produces FileEntry snapshots.
type Scanner struct {
	opts Options
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan walks root and returns an entry per filesystem object found.
// When recursive is false only the immediate children of root are
// reported. Symbolic links are reported as their own entry kind and
// never followed. Unreadable subtrees are skipped and recorded in
// Result.Errors rather than aborting the scan.
//
// Cancellation is checked between entries; on cancellation the partial
// result collected so far is returned along with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, root string, recursive bool) (*Result, error) {
	start := time.Now()

	absRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	var (
		entries   []types.FileEntry
		scanErrs  []types.ScanError
		entriesMu sync.Mutex
	)

	addEntry := func(e types.FileEntry) {
		entriesMu.Lock()
		entries = append(entries, e)
		entriesMu.Unlock()
		if s.opts.OnEntry != nil {
			s.opts.OnEntry(e)
		}
	}
	addError := func(path string, err error) {
		entriesMu.Lock()
		scanErrs = append(scanErrs, types.ScanError{Path: path, Err: err.Error()})
		entriesMu.Unlock()
	}

	if recursive {
		err = s.walkTree(ctx, absRoot, addEntry, addError)
	} else {
		err = s.listLevel(ctx, absRoot, addEntry, addError)
	}

	// Stable order within a call: repeated scans of an unchanged tree
	// yield the same sequence.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	sort.Slice(scanErrs, func(i, j int) bool { return scanErrs[i].Path < scanErrs[j].Path })

	result := &Result{
		Entries: entries,
		Errors:  scanErrs,
		Elapsed: time.Since(start),
	}

	if len(scanErrs) > 0 {
		logging.Get("scanner").Warn("scan completed with errors",
			"root", absRoot, "entries", len(entries), "errors", len(scanErrs))
	}

	if err != nil {
		return result, err
	}
	return result, nil
}

// walkTree scans the full tree under root using fastwalk.
func (s *Scanner) walkTree(ctx context.Context, root string, addEntry func(types.FileEntry), addError func(string, error)) error {
	conf := fastwalk.Config{
		Follow: false, // Symlinks are entries, never traversed.
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		// Cancellation is checked between entries, never mid-entry.
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			addError(path, err)
			return nil
		}

		if path == root {
			return nil
		}

		if s.isExcluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entry, err := buildEntry(path, d)
		if err != nil {
			addError(path, err)
			return nil
		}
		addEntry(entry)
		return nil
	})

	return walkErr
}

// listLevel scans a single directory level without descending.
func (s *Scanner) listLevel(ctx context.Context, root string, addEntry func(types.FileEntry), addError func(string, error)) error {
	dirents, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	for _, d := range dirents {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		path := filepath.Join(root, d.Name())
		if s.isExcluded(path) {
			continue
		}

		entry, err := buildEntry(path, d)
		if err != nil {
			addError(path, err)
			continue
		}
		addEntry(entry)
	}
	return nil
}

// buildEntry stats a directory entry and builds its snapshot.
func buildEntry(path string, d fs.DirEntry) (types.FileEntry, error) {
	info, err := d.Info()
	if err != nil {
		return types.FileEntry{}, err
	}

	kind := types.KindFile
	switch {
	case d.Type()&fs.ModeSymlink != 0:
		kind = types.KindSymlink
	case d.IsDir():
		kind = types.KindDir
	}

	size := info.Size()
	if kind != types.KindFile {
		size = 0
	}

	return types.FileEntry{
		Path:      path,
		Size:      size,
		ModTime:   info.ModTime(),
		Kind:      kind,
		IndexedAt: time.Now(),
	}, nil
}

// validateRoot resolves the root path to absolute and verifies it is a
// readable directory.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", &fs.PathError{Op: "scan", Path: abs, Err: os.ErrInvalid}
	}
	return abs, nil
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if pattern == "" {
			continue
		}
		if path == pattern {
			return true
		}
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}
