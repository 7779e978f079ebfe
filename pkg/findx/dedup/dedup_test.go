package dedup_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/findx/pkg/findx/dedup"
	"github.com/jamesainslie/findx/pkg/findx/hash"
	"github.com/jamesainslie/findx/pkg/findx/index"
)

func newStore(t *testing.T, opts ...index.Option) *index.Store {
	t.Helper()
	s, err := index.Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestFindDuplicates(t *testing.T) {
	root := t.TempDir()
	// A and B share bytes; C has different bytes but the same size as A.
	writeFiles(t, root, map[string]string{
		"a.txt": "same-bytes",
		"b.txt": "same-bytes",
		"c.txt": "diff-bytes",
		"d.txt": "unrelated content",
	})

	store := newStore(t)
	detector := dedup.New(store, dedup.Options{})

	groups, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
	}, groups[0].Paths)
	assert.Equal(t, int64(10), groups[0].Size)
	assert.NotEmpty(t, groups[0].Hash)
}

func TestFindDuplicatesExcludesEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"empty1": "",
		"empty2": "",
	})

	store := newStore(t)
	detector := dedup.New(store, dedup.Options{})

	groups, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, groups, "zero-byte files must not form a duplicate group")
}

func TestFindDuplicatesIncludeEmpty(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"empty1": "",
		"empty2": "",
	})

	store := newStore(t)
	detector := dedup.New(store, dedup.Options{IncludeEmpty: true})

	groups, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Paths, 2)
	assert.Equal(t, int64(0), groups[0].Size)
}

func TestFindDuplicatesOrdering(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		// Small group: 2 files of 4 bytes, reclaimable 4.
		"s1": "tiny",
		"s2": "tiny",
		// Large group: 3 files of 26 bytes, reclaimable 52.
		"l1": "abcdefghijklmnopqrstuvwxyz",
		"l2": "abcdefghijklmnopqrstuvwxyz",
		"l3": "abcdefghijklmnopqrstuvwxyz",
	})

	store := newStore(t)
	detector := dedup.New(store, dedup.Options{})

	groups, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, int64(52), groups[0].ReclaimableBytes(), "largest reclaimable group first")
	assert.Equal(t, int64(4), groups[1].ReclaimableBytes())

	// Paths within a group are lexicographic.
	assert.Equal(t, []string{
		filepath.Join(root, "l1"),
		filepath.Join(root, "l2"),
		filepath.Join(root, "l3"),
	}, groups[0].Paths)
}

func TestFindDuplicatesDirectoriesNeverCandidates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"x/a.txt": "same",
		"y/a.txt": "same",
	})

	store := newStore(t)
	detector := dedup.New(store, dedup.Options{})

	groups, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	for _, p := range groups[0].Paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.False(t, info.IsDir())
	}
}

func TestFindDuplicatesHashesOnlySizeCollisions(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a": "same-size!",
		"b": "same-size!",
		"c": "this one is alone at its size",
	})

	var calls atomic.Int64
	hasher := func(path string) (string, error) {
		calls.Add(1)
		return hash.SHA256(path)
	}

	store := newStore(t, index.WithHasher(hasher))
	detector := dedup.New(store, dedup.Options{})

	_, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)

	// c is the only file of its size and must never be hashed.
	assert.Equal(t, int64(2), calls.Load())
}

func TestFindDuplicatesReusesCachedHashes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a": "dup-bytes",
		"b": "dup-bytes",
	})

	var calls atomic.Int64
	hasher := func(path string) (string, error) {
		calls.Add(1)
		return hash.SHA256(path)
	}

	store := newStore(t, index.WithHasher(hasher))
	detector := dedup.New(store, dedup.Options{})

	_, err := detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())

	// Second run over an unchanged tree hashes nothing.
	_, err = detector.FindDuplicates(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}
