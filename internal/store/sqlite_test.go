// ABOUTME: Tests for the SQLite KV implementation
// ABOUTME: Covers schema creation, get/set round trips, and reopen persistence

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestGet_Missing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, ConversationsKey, []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := s.Get(ctx, ConversationsKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != `[]` {
		t.Errorf("expected %q, got %q", `[]`, string(value))
	}
}

func TestSet_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "second" {
		t.Errorf("expected %q, got %q", "second", string(value))
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("persisted")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(value) != "persisted" {
		t.Errorf("expected %q, got %q", "persisted", string(value))
	}
}
