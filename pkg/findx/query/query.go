// Package query evaluates name and attribute filters against the file
// index or a live scan. All active predicates of a Spec must match
// (logical AND), and results are ordered lexicographically by path so
// repeated queries over an unchanged snapshot are reproducible.
package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/findx/pkg/findx/index"
	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/scanner"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// ErrInvalidPattern indicates a malformed glob or regular expression.
// It is surfaced before any entry is evaluated and fails only the one
// query, never the store.
var ErrInvalidPattern = errors.New("invalid search pattern")

// Spec describes one query. A Spec is immutable once constructed; one
// Spec evaluated against a fixed snapshot yields one deterministic
// result sequence. Glob and Regex compose: when both are set an entry
// must match both.
type Spec struct {
	// Root is the directory the query is scoped to.
	Root string

	// Glob is an anchored full-name pattern (e.g. "*.txt"). Empty
	// disables glob matching.
	Glob string

	// Regex is matched against the path's final component, or against
	// the full path when FullPath is set. Empty disables regex matching.
	Regex string

	// FullPath matches Regex against the whole path instead of the
	// base name.
	FullPath bool

	// Recursive sources entries from the full-tree index (live scan
	// when no usable index exists). When false, only the immediate
	// children of Root are considered.
	Recursive bool

	// MinSize and MaxSize bound entry sizes in bytes. Zero disables
	// the respective bound.
	MinSize int64
	MaxSize int64

	// ModifiedAfter and ModifiedBefore bound the modification time.
	// Zero values disable the respective bound.
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
}

// compiled holds the pre-compiled patterns for one query evaluation.
type compiled struct {
	glob  glob.Glob
	regex *regexp.Regexp
}

// compile validates and compiles the Spec's patterns up front so a
// malformed pattern fails the query immediately, not per entry.
func (s *Spec) compile() (*compiled, error) {
	var c compiled

	if s.Glob != "" {
		g, err := glob.Compile(s.Glob)
		if err != nil {
			return nil, fmt.Errorf("%w: glob %q: %v", ErrInvalidPattern, s.Glob, err)
		}
		c.glob = g
	}

	if s.Regex != "" {
		re, err := regexp.Compile(s.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: regex %q: %v", ErrInvalidPattern, s.Regex, err)
		}
		c.regex = re
	}

	return &c, nil
}

// Engine evaluates queries against the index store, falling back to a
// live scan when a root has no usable index.
type Engine struct {
	store   *index.Store
	scanner *scanner.Scanner
}

// New creates an Engine. store may be nil, in which case every query
// runs against a live scan.
func New(store *index.Store, sc *scanner.Scanner) *Engine {
	if sc == nil {
		sc = scanner.New(scanner.Options{})
	}
	return &Engine{store: store, scanner: sc}
}

// Query returns the entries under spec.Root matching every active
// predicate, ordered lexicographically by path.
func (e *Engine) Query(ctx context.Context, spec Spec) ([]types.FileEntry, error) {
	c, err := spec.compile()
	if err != nil {
		return nil, err
	}

	entries, err := e.source(ctx, spec)
	if err != nil {
		return nil, err
	}

	matched := make([]types.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if spec.matches(c, &entry) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// source yields the candidate entries for the query, already sorted by
// path. Recursive queries read the index snapshot; a missing or corrupt
// index falls back to a live walk. Non-recursive queries always list a
// single level live.
func (e *Engine) source(ctx context.Context, spec Spec) ([]types.FileEntry, error) {
	if spec.Recursive && e.store != nil {
		entries, err := e.store.All(spec.Root)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, index.ErrNoIndex) && !errors.Is(err, index.ErrCorruptIndex) {
			return nil, err
		}
		logging.Get("query").Debug("no usable index, scanning live", "root", spec.Root, "reason", err)
	}

	result, err := e.scanner.Scan(ctx, spec.Root, spec.Recursive)
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// matches reports whether entry satisfies every active predicate.
func (s *Spec) matches(c *compiled, entry *types.FileEntry) bool {
	if s.MinSize > 0 && entry.Size < s.MinSize {
		return false
	}
	if s.MaxSize > 0 && entry.Size > s.MaxSize {
		return false
	}
	if !s.ModifiedAfter.IsZero() && entry.ModTime.Before(s.ModifiedAfter) {
		return false
	}
	if !s.ModifiedBefore.IsZero() && entry.ModTime.After(s.ModifiedBefore) {
		return false
	}

	name := filepath.Base(entry.Path)
	if c.glob != nil && !c.glob.Match(name) {
		return false
	}
	if c.regex != nil {
		subject := name
		if s.FullPath {
			subject = entry.Path
		}
		if !c.regex.MatchString(subject) {
			return false
		}
	}
	return true
}
