// ABOUTME: Tests for the SQLite key-value store
// ABOUTME: Covers CRUD operations, prefix listing, and reopen persistence

package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "kv.db")

	store, err := Open(dbPath, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "kv.db")

	store, err := Open(dbPath, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "kv.db")

	store, err := Open(dbPath, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSetAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "greeting", "hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Get = %q, want %q", got, "hello")
	}
}

func TestSet_Overwrites(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "k", "first"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "k", "second"); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
}

func TestGet_Missing(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete_Missing(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.Delete(context.Background(), "never-existed")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for _, key := range []string{"repo/alpha", "repo/beta", "other/gamma"} {
		if err := store.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set %q failed: %v", key, err)
		}
	}

	// Prefix listing
	keys, err := store.List(ctx, "repo/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List returned %d keys, want 2: %v", len(keys), keys)
	}
	if keys[0] != "repo/alpha" || keys[1] != "repo/beta" {
		t.Errorf("List = %v, want sorted [repo/alpha repo/beta]", keys)
	}

	// Empty prefix lists everything
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List returned %d keys, want 3: %v", len(all), all)
	}
}

func TestList_Empty(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	keys, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List returned %d keys, want 0", len(keys))
	}
}

func TestReopen_Persists(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "kv.db")
	ctx := context.Background()

	store, err := Open(dbPath, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set(ctx, "durable", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dbPath, testLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "durable")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}
}
