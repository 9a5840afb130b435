package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dossier.yaml")

	if err := WriteFileAtomic(path, []byte("a: 1\n"), 0o600, false); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "a: 1\n" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomic_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dossier.yaml")

	if err := WriteFileAtomic(path, []byte("first"), 0o644, false); err != nil {
		t.Fatalf("first write: %v", err)
	}

	err := WriteFileAtomic(path, []byte("second"), 0o644, false)
	if !errors.Is(err, ErrFileExists) {
		t.Fatalf("err = %v, want ErrFileExists", err)
	}

	if err := WriteFileAtomic(path, []byte("second"), 0o644, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}
}
