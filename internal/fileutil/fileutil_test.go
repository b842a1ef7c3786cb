package fileutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.xml")
	data := []byte("<quiz/>\n")

	if err := WriteAtomic(path, data, 0o644); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("file content = %q, want %q", got, data)
	}
}

func TestWriteAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.xml")
	if err := WriteAtomic(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}
	if err := WriteAtomic(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "new" {
		t.Errorf("file content = %q, want %q", got, "new")
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.xml")
	if err := WriteAtomic(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("temporary file %q left behind", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestWriteAtomicMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "quiz.xml")
	if err := WriteAtomic(path, []byte("data"), 0o644); err == nil {
		t.Error("WriteAtomic() should fail when the directory does not exist")
	}
}

func TestWriteXZRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.xml.xz")
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<quiz>\n</quiz>\n")

	if err := WriteXZ(path, data, 0o644); err != nil {
		t.Fatalf("WriteXZ() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("xz.NewReader() error = %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("decompressed content = %q, want %q", got, data)
	}
}

func TestCompressXZEmpty(t *testing.T) {
	compressed, err := CompressXZ(nil)
	if err != nil {
		t.Fatalf("CompressXZ() error = %v", err)
	}

	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("xz.NewReader() error = %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("decompressed %d bytes, want 0", len(got))
	}
}
