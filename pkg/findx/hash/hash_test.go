package hash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestSHA256(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.txt", "hello")

	got, err := SHA256(path)
	if err != nil {
		t.Fatalf("SHA256 failed: %v", err)
	}

	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("SHA256 = %s, want %s", got, want)
	}
}

func TestSHA256EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty", "")

	got, err := SHA256(path)
	if err != nil {
		t.Fatalf("SHA256 failed: %v", err)
	}

	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("SHA256 = %s, want %s", got, want)
	}
}

func TestSHA256MissingFile(t *testing.T) {
	_, err := SHA256(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestForAlgorithm(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data", "hello")

	tests := []struct {
		algo string
		want string
	}{
		{"sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"sha1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"md5", "5d41402abc4b2a76b9719d911017c592"},
	}

	for _, tt := range tests {
		t.Run(tt.algo, func(t *testing.T) {
			h, err := ForAlgorithm(tt.algo)
			if err != nil {
				t.Fatalf("ForAlgorithm(%q) failed: %v", tt.algo, err)
			}
			got, err := h(path)
			if err != nil {
				t.Fatalf("hashing failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("digest = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestForAlgorithmUnknown(t *testing.T) {
	_, err := ForAlgorithm("crc32")
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}
