// Package hash computes content digests for duplicate detection and
// explicit file hashing. Digests are streamed so large files are never
// loaded into memory whole.
package hash

import (
	"crypto/md5"  //nolint:gosec // optional legacy algorithm, not used for security
	"crypto/sha1" //nolint:gosec // optional legacy algorithm, not used for security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Hasher computes the content digest of the file at path. The index
// store takes a Hasher so callers (and tests) can substitute their own.
type Hasher func(path string) (string, error)

// ErrUnknownAlgorithm is returned when an unsupported algorithm name is given.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// SHA256 is the default Hasher. It returns the hex-encoded SHA-256
// digest of the file's bytes.
func SHA256(path string) (string, error) {
	return digest(path, sha256.New())
}

// ForAlgorithm returns a Hasher for the named algorithm.
// Supported: "sha256" (default), "sha1", "md5".
func ForAlgorithm(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return SHA256, nil
	case "sha1":
		return func(path string) (string, error) {
			return digest(path, sha1.New()) //nolint:gosec
		}, nil
	case "md5":
		return func(path string) (string, error) {
			return digest(path, md5.New()) //nolint:gosec
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// digest streams the file through h and returns the hex digest.
// A single file's hash is computed to completion once started; there is
// no mid-file cancellation point, so a returned digest is never partial.
func digest(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
