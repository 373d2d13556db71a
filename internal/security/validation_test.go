package security

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateFilePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "tool")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain file", "requirements.txt", false},
		{"nested file", "lib/parser/core.py", false},
		{"dot prefix", "./main.py", false},
		{"empty", "", true},
		{"parent traversal", "../evil.py", true},
		{"nested traversal", "lib/../../evil.py", true},
		{"absolute", "/etc/passwd", true},
		{"name containing dots", "lib/..hidden/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path, base)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRelativePath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")

	tests := []struct {
		name      string
		rel       string
		allowRoot bool
		wantErr   bool
	}{
		{"file", "src/foo.py", true, false},
		{"dir", "out", false, false},
		{"root allowed", ".", true, false},
		{"root rejected", ".", false, true},
		{"escape", "../other", true, true},
		{"absolute", "/tmp/out", true, true},
		{"blank", "  ", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.rel, root, tt.allowRoot)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelativePath(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRelativePathRelativeRoot(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		rel     string
		wantErr bool
	}{
		{"dot root file", ".", "src/app.py", false},
		{"dot root dir", ".", "build/out", false},
		{"dot slash root", "./ws", "out", false},
		{"dot root escape", ".", "../other", true},
		{"dot root itself", ".", "./", true},
		{"nested root escape", "ws", "../ws2/x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.rel, tt.root, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelativePath(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
		})
	}
}

func TestLimitedReader(t *testing.T) {
	t.Run("within budget", func(t *testing.T) {
		r := NewLimitedReader(strings.NewReader("hello"), 10)
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("got %q, want %q", data, "hello")
		}
	})

	t.Run("over budget", func(t *testing.T) {
		r := NewLimitedReader(bytes.NewReader(make([]byte, 64)), 16)
		_, err := io.ReadAll(r)
		if !errors.Is(err, ErrSizeLimit) {
			t.Fatalf("expected ErrSizeLimit, got %v", err)
		}
	})
}

func TestLimitedReaderExactBudget(t *testing.T) {
	r := NewLimitedReader(strings.NewReader("12345678"), 8)
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("exact budget should not fail: %v", err)
	}
	if len(data) != 8 {
		t.Errorf("read %d bytes, want 8", len(data))
	}
}
