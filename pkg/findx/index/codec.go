package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/jamesainslie/findx/pkg/findx/types"
)

// FormatVersion is incremented when the persisted record format changes.
// A stored index with a different version fails closed and is rebuilt.
const FormatVersion = 1

// Key prefixes for the per-root keyspaces.
const (
	prefixEntry = "e:"
	prefixMeta  = "m:"
)

// keySeparator separates the root, generation, and relative path in
// entry keys.
const keySeparator = '\x00'

// record is the persisted form of one FileEntry, keyed by root,
// generation, and relative path. Times are stored as UnixNano.
type record struct {
	Size        int64
	MtimeNano   int64
	Kind        int
	Hash        string
	IndexedNano int64
}

// meta is the versioned per-root header. It names the generation whose
// entries are current; keys under any other generation are stale.
// Reading a meta with an unexpected version or root is treated as no
// index at all.
type meta struct {
	Version   int
	Root      string
	Gen       uint64
	BuiltNano int64
	Entries   int
}

func (r *record) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *record) decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

func (m *meta) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *meta) decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(m)
}

// entryKey builds the storage key for an entry under root at gen.
// Format: e:<root>\x00<gen:016x>\x00<relative_path>
// The generation is fixed-width hex so keys within one generation sort
// by relative path.
func entryKey(root string, gen uint64, relPath string) []byte {
	return []byte(fmt.Sprintf("%s%s%c%016x%c%s", prefixEntry, root, keySeparator, gen, keySeparator, relPath))
}

// entryPrefix returns the prefix covering all entries of one generation.
func entryPrefix(root string, gen uint64) []byte {
	return []byte(fmt.Sprintf("%s%s%c%016x%c", prefixEntry, root, keySeparator, gen, keySeparator))
}

// rootPrefix returns the prefix covering every generation of a root.
func rootPrefix(root string) []byte {
	return []byte(prefixEntry + root + string(keySeparator))
}

// metaKey builds the storage key for a root's meta header.
func metaKey(root string) []byte {
	return []byte(prefixMeta + root)
}

// relFromKey extracts the relative path from an entry key at gen.
func relFromKey(root string, gen uint64, key []byte) string {
	return string(key[len(entryPrefix(root, gen)):])
}

// toRecord converts a FileEntry to its persisted form.
func toRecord(e *types.FileEntry) *record {
	return &record{
		Size:        e.Size,
		MtimeNano:   e.ModTime.UnixNano(),
		Kind:        int(e.Kind),
		Hash:        e.ContentHash,
		IndexedNano: e.IndexedAt.UnixNano(),
	}
}

// toEntry converts a persisted record back to a FileEntry at path.
func (r *record) toEntry(path string) types.FileEntry {
	return types.FileEntry{
		Path:        path,
		Size:        r.Size,
		ModTime:     time.Unix(0, r.MtimeNano),
		Kind:        types.EntryKind(r.Kind),
		ContentHash: r.Hash,
		IndexedAt:   time.Unix(0, r.IndexedNano),
	}
}
