package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteAtomic writes data to path via a temp file in the same directory plus
// rename, so a concurrent reader sees either the old content or the new
// content in full, never a mix.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Swap exchanges the contents of two files through a temporary rename. Both
// files must exist.
func Swap(a, b string) error {
	dir := filepath.Dir(a)
	tmp := filepath.Join(dir, filepath.Base(a)+".swap")
	if err := os.Rename(a, tmp); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	if err := os.Rename(b, a); err != nil {
		_ = os.Rename(tmp, a)
		return fmt.Errorf("swap: %w", err)
	}
	if err := os.Rename(tmp, b); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	return nil
}

// ErrChanged reports that a compare-and-swap replace lost the race: the file
// no longer holds the content the caller read.
var ErrChanged = errors.New("file changed since read")

// ReplaceIfUnchanged atomically replaces path with next, but only if the file
// still holds prev (nil prev means the file must not exist). Callers retry
// against fresh content on ErrChanged, which gives read-modify-write updates
// last-writer-wins semantics without ever losing a concurrent write unseen.
func ReplaceIfUnchanged(path string, prev, next []byte, mode os.FileMode) error {
	return WithLock(path, func() error {
		current, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("reread %s: %w", path, err)
			}
			current = nil
		}
		if !bytes.Equal(current, prev) {
			return ErrChanged
		}
		return WriteAtomic(path, next, mode)
	})
}

// WithLock runs fn while holding an exclusive advisory lock scoped to path.
// The lock lives in a sibling ".lock" file so it survives atomic renames of
// path itself.
func WithLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock for %s: %w", path, err)
	}
	defer lock.Unlock()
	return fn()
}
