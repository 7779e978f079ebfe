package types

import (
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "bytes with B suffix", input: "512B", want: 512},
		{name: "kilobytes", input: "100K", want: 100 * 1024},
		{name: "kilobytes with iB", input: "100KiB", want: 100 * 1024},
		{name: "megabytes", input: "50M", want: 50 * 1024 * 1024},
		{name: "gigabytes", input: "2GB", want: 2 * 1024 * 1024 * 1024},
		{name: "terabytes", input: "1TiB", want: 1024 * 1024 * 1024 * 1024},
		{name: "decimal values truncated", input: "1.5G", want: 1610612736},
		{name: "whitespace ignored", input: "  100M  ", want: 100 * 1024 * 1024},

		{name: "empty string", input: "", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-100M", wantErr: true},
		{name: "letters only", input: "abc", wantErr: true},
		{name: "suffix only", input: "M", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1024, "1.0 KiB"},
		{1536 * 1024, "1.5 MiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestEntryKindString(t *testing.T) {
	tests := []struct {
		kind EntryKind
		want string
	}{
		{KindFile, "file"},
		{KindDir, "dir"},
		{KindSymlink, "symlink"},
		{EntryKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EntryKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestDuplicateGroupReclaimableBytes(t *testing.T) {
	tests := []struct {
		name  string
		group DuplicateGroup
		want  int64
	}{
		{
			name:  "two members",
			group: DuplicateGroup{Size: 100, Paths: []string{"/a", "/b"}},
			want:  100,
		},
		{
			name:  "four members",
			group: DuplicateGroup{Size: 10, Paths: []string{"/a", "/b", "/c", "/d"}},
			want:  30,
		},
		{
			name:  "single member",
			group: DuplicateGroup{Size: 100, Paths: []string{"/a"}},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.group.ReclaimableBytes(); got != tt.want {
				t.Errorf("ReclaimableBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScanErrorError(t *testing.T) {
	e := ScanError{Path: "/tmp/x", Err: "permission denied"}
	want := "/tmp/x: permission denied"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
