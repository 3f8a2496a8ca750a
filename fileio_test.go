package phos

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAllAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.phos")
	data := []byte("payload")
	if err := WriteAllAtomic(path, data); err != nil {
		t.Fatalf("WriteAllAtomic failed: %v", err)
	}
	back, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Fatalf("read back %q, want %q", back, data)
	}
}

func TestReadAllEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	b, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll of empty file failed: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("ReadAll of empty file returned %d bytes", len(b))
	}
}

func TestReadAllMissingFile(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("missing file: got %v, want ErrIO", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file: %v does not wrap fs.ErrNotExist", err)
	}
}

func TestWriteAllAtomicOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := WriteAllAtomic(path, []byte("old")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteAllAtomic(path, []byte("new")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	back, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(back) != "new" {
		t.Fatalf("read back %q, want %q", back, "new")
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("temporary file left behind after overwrite")
	}
}

func TestWriteAllAtomicFailureLeavesTargetIntact(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "busy")
	// Renaming a regular file over a non-empty directory fails, exercising
	// the cleanup path.
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err := WriteAllAtomic(target, []byte("data"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("rename over directory: got %v, want ErrIO", err)
	}
	if fi, statErr := os.Stat(target); statErr != nil || !fi.IsDir() {
		t.Fatalf("failed write destroyed the existing target")
	}
	if _, statErr := os.Stat(target + ".tmp"); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatalf("temporary file left behind after failed rename")
	}
}
