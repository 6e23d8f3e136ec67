package props

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "adpnet.json"), logging.NewNop())
}

func TestSetAndGet(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("stage.user", "lockss"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("peer", "ALPHA"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get("stage.user")
	if err != nil || got != "lockss" {
		t.Fatalf("get stage.user = %q, %v", got, err)
	}
	got, err = store.Get("peer")
	if err != nil || got != "ALPHA" {
		t.Fatalf("get peer = %q, %v", got, err)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get("nope"); !errors.Is(err, adpnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	if err := store.Set("peer", "ALPHA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Get("nope"); !errors.Is(err, adpnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}
}

func TestSetWritesBackup(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("peer", "ALPHA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// first Set had no prior file, so no backup yet
	if _, err := os.Stat(store.BackupPath()); err == nil {
		t.Fatal("backup should not exist before a second mutation")
	}

	if err := store.Set("peer", "BETA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(store.BackupPath()); err != nil {
		t.Fatalf("expected backup after second set: %v", err)
	}
}

func TestUndoSwapsNotStacks(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("peer", "ALPHA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set("peer", "BETA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	restored, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != string(before) {
		t.Fatalf("undo should restore prior content byte-for-byte:\n got %q\nwant %q", restored, before)
	}

	// a second undo swaps back to the post-set state
	if err := store.Undo(); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	swappedBack, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(swappedBack) != string(after) {
		t.Fatalf("second undo should swap back:\n got %q\nwant %q", swappedBack, after)
	}
}

func TestUndoWithoutBackupIsNotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.Undo(); !errors.Is(err, adpnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetRejectsScalarIntermediate(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set("peer", "ALPHA"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("peer.nested", "x"); err == nil {
		t.Fatal("expected error descending through a scalar")
	}
}
