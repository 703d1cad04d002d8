package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveReader(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "upload.mp3")

	written, err := SaveReader(dst, strings.NewReader("audio bytes"))
	if err != nil {
		t.Fatalf("SaveReader: %v", err)
	}
	if written != int64(len("audio bytes")) {
		t.Fatalf("unexpected byte count: %d", written)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "audio bytes" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestSaveReaderRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "upload.mp3")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := SaveReader(dst, strings.NewReader("new")); err == nil {
		t.Fatal("expected error for existing destination")
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "old" {
		t.Fatalf("existing file was modified: %q", got)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	dst := filepath.Join(dir, "dst.wav")

	content := []byte("pcm data")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists on missing file: %v", err)
	}
}
