// Package journal records index operations to the filesystem. Each
// build or refresh produces one JSON entry, written atomically, so a
// caller can audit what happened to an index and when.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/findx/pkg/findx/types"
)

// OperationType identifies the recorded operation.
type OperationType string

// Operation types written to the journal.
const (
	OpBuild   OperationType = "build"
	OpRefresh OperationType = "refresh"
)

// Entry is one journal record.
type Entry struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Operation OperationType       `json:"operation"`
	Root      string              `json:"root"`
	Entries   int                 `json:"entries,omitempty"`
	Stats     *types.RefreshStats `json:"stats,omitempty"`
}

// Journal manages operation records in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates a Journal writing to dir. The directory is not created
// until EnsureDir is called.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// EnsureDir creates the journal directory if it does not exist.
func (j *Journal) EnsureDir() error {
	return os.MkdirAll(j.dir, 0o755)
}

// LogBuild records a completed index build.
func (j *Journal) LogBuild(root string, entries int) (*Entry, error) {
	return j.log(&Entry{
		Operation: OpBuild,
		Root:      root,
		Entries:   entries,
	})
}

// LogRefresh records a completed index refresh.
func (j *Journal) LogRefresh(root string, stats types.RefreshStats) (*Entry, error) {
	return j.log(&Entry{
		Operation: OpRefresh,
		Root:      root,
		Stats:     &stats,
	})
}

// log fills in the entry identity and persists it.
func (j *Journal) log(entry *Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()

	if err := j.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	return entry, nil
}

// writeEntry writes an entry atomically using a temp file and rename.
func (j *Journal) writeEntry(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	filePath := filepath.Join(j.dir, entry.ID+".json")
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns journal entries sorted by timestamp descending (newest
// first). If limit is 0 or negative, all entries are returned. Records
// that cannot be parsed are skipped.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := j.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, k int) bool {
		return entries[i].Timestamp.After(entries[k].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// readEntryFile reads and parses one journal record.
func (j *Journal) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}
