package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestWriteAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	if err := WriteAtomic(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, []byte(`{"a":2}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("content = %q", got)
	}

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestSwap(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "current")
	b := filepath.Join(dir, "backup")

	if err := os.WriteFile(a, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Swap(a, b); err != nil {
		t.Fatal(err)
	}

	gotA, _ := os.ReadFile(a)
	gotB, _ := os.ReadFile(b)
	if string(gotA) != "old" || string(gotB) != "new" {
		t.Fatalf("after swap: a=%q b=%q", gotA, gotB)
	}

	// a second swap restores the original arrangement
	if err := Swap(a, b); err != nil {
		t.Fatal(err)
	}
	gotA, _ = os.ReadFile(a)
	if string(gotA) != "new" {
		t.Fatalf("after double swap: a=%q, want new", gotA)
	}
}

func TestWithLockRunsFunction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	ran := false
	err := WithLock(path, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("expected locked function to run")
	}
}
