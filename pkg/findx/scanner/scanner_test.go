package scanner

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"testing"

	"github.com/jamesainslie/findx/pkg/findx/types"
)

// createTestTree builds a fixture tree:
//
//	root/
//	  a.txt (5 bytes)
//	  b.log (3 bytes)
//	  sub/
//	    c.txt (7 bytes)
//	    nested/
//	      d.dat (1 byte)
//	  link -> a.txt (symlink, non-Windows)
func createTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "sub", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"a.txt":            "aaaaa",
		"b.log":            "bbb",
		"sub/c.txt":        "ccccccc",
		"sub/nested/d.dat": "d",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if runtime.GOOS != "windows" {
		if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link")); err != nil {
			t.Fatal(err)
		}
	}

	return root
}

func pathsOf(entries []types.FileEntry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

func TestScanRecursive(t *testing.T) {
	root := createTestTree(t)
	s := New(Options{})

	result, err := s.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected scan errors: %v", result.Errors)
	}

	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.log"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "c.txt"),
		filepath.Join(root, "sub", "nested"),
		filepath.Join(root, "sub", "nested", "d.dat"),
	}
	if runtime.GOOS != "windows" {
		want = append(want, filepath.Join(root, "link"))
	}
	// Entries are returned sorted by path.
	got := pathsOf(result.Entries)
	wantSorted := append([]string(nil), want...)
	sort.Strings(wantSorted)
	if !reflect.DeepEqual(got, wantSorted) {
		t.Errorf("paths = %v, want %v", got, wantSorted)
	}

	byPath := make(map[string]types.FileEntry)
	for _, e := range result.Entries {
		byPath[e.Path] = e
	}

	if e := byPath[filepath.Join(root, "a.txt")]; e.Kind != types.KindFile || e.Size != 5 {
		t.Errorf("a.txt: kind=%v size=%d, want file/5", e.Kind, e.Size)
	}
	if e := byPath[filepath.Join(root, "sub")]; e.Kind != types.KindDir || e.Size != 0 {
		t.Errorf("sub: kind=%v size=%d, want dir/0", e.Kind, e.Size)
	}
	if runtime.GOOS != "windows" {
		if e := byPath[filepath.Join(root, "link")]; e.Kind != types.KindSymlink {
			t.Errorf("link: kind=%v, want symlink", e.Kind)
		}
	}

	// No hash is ever computed during a scan.
	for _, e := range result.Entries {
		if e.ContentHash != "" {
			t.Errorf("entry %s has eager hash %q", e.Path, e.ContentHash)
		}
	}
}

func TestScanSingleLevel(t *testing.T) {
	root := createTestTree(t)
	s := New(Options{})

	result, err := s.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	for _, e := range result.Entries {
		if filepath.Dir(e.Path) != root {
			t.Errorf("entry %s is below the first level", e.Path)
		}
	}

	got := pathsOf(result.Entries)
	for _, p := range got {
		if p == filepath.Join(root, "sub", "c.txt") {
			t.Error("single-level scan descended into sub/")
		}
	}
}

func TestScanStableOrder(t *testing.T) {
	root := createTestTree(t)
	s := New(Options{})

	first, err := s.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(pathsOf(first.Entries), pathsOf(second.Entries)) {
		t.Error("repeated scans of an unchanged tree returned different orders")
	}
}

func TestScanExclusions(t *testing.T) {
	root := createTestTree(t)
	s := New(Options{Exclude: []string{"sub"}})

	result, err := s.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range result.Entries {
		if e.Path == filepath.Join(root, "sub") {
			t.Error("excluded dir reported")
		}
		if filepath.Dir(e.Path) == filepath.Join(root, "sub") {
			t.Error("descended into excluded dir")
		}
	}
}

func TestScanCancellation(t *testing.T) {
	root := createTestTree(t)
	s := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, root, true)
	if err == nil {
		t.Fatal("expected error from cancelled scan")
	}
}

func TestScanMissingRoot(t *testing.T) {
	s := New(Options{})
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "gone"), true)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestScanUnreadableSubdirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.MkdirAll(locked, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"ok.txt":            "readable",
		"locked/secret.txt": "unreachable",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := New(Options{})
	result, err := s.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// The unreadable subtree is reported alongside the partial result,
	// not as a fatal error.
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Path != locked {
		t.Errorf("error path = %q, want %q", result.Errors[0].Path, locked)
	}

	paths := make(map[string]bool, len(result.Entries))
	for _, e := range result.Entries {
		paths[e.Path] = true
	}
	if !paths[filepath.Join(root, "ok.txt")] {
		t.Error("readable file missing from results")
	}
	if !paths[locked] {
		t.Error("unreadable directory entry missing from results")
	}
	if paths[filepath.Join(locked, "secret.txt")] {
		t.Error("entry reported from inside an unreadable directory")
	}
}

func TestScanRootIsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(Options{})
	if _, err := s.Scan(context.Background(), file, true); err == nil {
		t.Fatal("expected error when root is a file")
	}
}
