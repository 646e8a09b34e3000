package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/lipsum/pkg/corpus"
)

// openStore opens the database at path, creating its directory and schema as
// needed. The returned function closes both the store and the database.
func openStore(path string, logger *slog.Logger) (*corpus.Store, func(), error) {
	file, _, _ := strings.Cut(path, "?")
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store, err := corpus.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	store.SetLogger(logger)

	return store, func() {
		store.Close()
		closeDB(db, logger)
	}, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
}
