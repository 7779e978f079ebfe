// Package types provides core data types for the findx file indexer.
// It includes the filesystem entry snapshot model shared by the scanner,
// index store, duplicate detector, and query engine, along with utility
// functions for parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// EntryKind distinguishes the filesystem object a FileEntry describes.
type EntryKind int

const (
	// KindFile is a regular file.
	KindFile EntryKind = iota
	// KindDir is a directory.
	KindDir
	// KindSymlink is a symbolic link. Links are reported as their own
	// entry and never followed during traversal.
	KindSymlink
)

// String returns the string representation of the entry kind.
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// FileEntry is a point-in-time snapshot of one filesystem object.
// Path is the unique key within a single root's index.
type FileEntry struct {
	// Path is the absolute, cleaned path to the object.
	Path string `json:"path"`

	// Size is the file size in bytes. Zero for directories.
	Size int64 `json:"size"`

	// ModTime is the last content modification time.
	ModTime time.Time `json:"mod_time"`

	// Kind records whether the entry is a file, directory, or symlink.
	Kind EntryKind `json:"kind"`

	// ContentHash is the hex-encoded SHA-256 digest of the file's bytes.
	// Empty until computed; populated lazily by the index store and
	// invalidated whenever Size or ModTime changes. Directories and
	// symlinks never carry a hash.
	ContentHash string `json:"content_hash,omitempty"`

	// IndexedAt is when this entry was last confirmed against disk.
	IndexedAt time.Time `json:"indexed_at"`
}

// IsDir reports whether the entry is a directory.
func (e *FileEntry) IsDir() bool { return e.Kind == KindDir }

// HumanSize returns the entry size formatted as a human-readable string.
func (e *FileEntry) HumanSize() string { return FormatSize(e.Size) }

// ScanError pairs a path with the error encountered there. Per-entry
// errors are collected during a walk and reported alongside partial
// results rather than aborting the whole operation.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Err is the message describing what went wrong.
	Err string `json:"error"`
}

// Error implements the error interface.
func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

// RefreshStats summarizes one incremental index refresh.
type RefreshStats struct {
	// Added is the number of paths present on disk but not in the index.
	Added int `json:"added"`

	// Removed is the number of indexed paths no longer present on disk.
	Removed int `json:"removed"`

	// Changed is the number of paths whose size or mtime differ from
	// the stored snapshot. A rename shows up as one removal plus one
	// addition; the store does no rename tracking.
	Changed int `json:"changed"`

	// Elapsed is the wall time the refresh took.
	Elapsed time.Duration `json:"elapsed"`
}

// DuplicateGroup is a set of regular files sharing identical content.
type DuplicateGroup struct {
	// Hash is the shared content digest.
	Hash string `json:"hash"`

	// Size is the byte size of each member.
	Size int64 `json:"size"`

	// Paths are the member paths, sorted lexicographically.
	Paths []string `json:"paths"`
}

// ReclaimableBytes returns the space freed by keeping one member and
// removing the rest.
func (g *DuplicateGroup) ReclaimableBytes() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return int64(len(g.Paths)-1) * g.Size
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It accepts plain byte counts ("1024"), byte suffixes ("512B"),
// and K/M/G/T with optional B or iB ("100K", "1.5GiB"). Decimal values
// are truncated to the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}
