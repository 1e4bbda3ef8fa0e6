package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captured.log")

	rw, err := NewRotatingWriter(path, 50, 3)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.maxSize = 8 // override the 50MB default so rotation triggers quickly
	defer rw.Close()

	if _, err := rw.Write([]byte("1234567")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := rw.Write([]byte("89abcdef")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected a .1 backup after exceeding maxSize: %v", err)
	}
}

func TestRotatingWriterReopenPicksUpExistingSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captured.log")

	rw, err := NewRotatingWriter(path, 50, 3)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := rw.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if rw.written != int64(len("hello")) {
		t.Fatalf("written = %d, want %d", rw.written, len("hello"))
	}
}

func TestRotatingWriterShiftsBackupsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captured.log")

	rw, err := NewRotatingWriter(path, 50, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.maxSize = 4
	defer rw.Close()

	for i := 0; i < 3; i++ {
		if _, err := rw.Write([]byte("xxxxx")); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected .1 backup: %v", err)
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Fatalf("expected .2 backup: %v", err)
	}
}
