package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestStore creates a new SQLite database in a temporary directory and a
// Store for testing. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestCorpus is a convenience helper that also creates a corpus with two texts.
func setupTestCorpus(t *testing.T) (context.Context, *Store, Info) {
	t.Helper()
	_, s := setupTestStore(t)
	ctx := context.Background()

	info, err := s.CreateCorpus(ctx, "colors", 2)
	if err != nil {
		t.Fatalf("setup: CreateCorpus() failed: %v", err)
	}
	if _, err := s.AddText(ctx, info, "spectrum", "red orange yellow green blue indigo violet"); err != nil {
		t.Fatalf("setup: AddText() failed: %v", err)
	}
	if _, err := s.AddText(ctx, info, "short", "blue indigo black"); err != nil {
		t.Fatalf("setup: AddText() failed: %v", err)
	}
	info, err = s.GetCorpus(ctx, info.Name)
	if err != nil {
		t.Fatalf("setup: GetCorpus() failed: %v", err)
	}
	return ctx, s, info
}
