package types

import "github.com/dustin/go-humanize"

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units for consistency with common filesystem tools.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1024) returns "1.0 KiB"
//   - FormatSize(1536*1024) returns "1.5 MiB"
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
