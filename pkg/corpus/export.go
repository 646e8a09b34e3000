package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/lipsum/pkg/markov"
)

// ExportedCorpus is the serializable representation of a corpus, used for
// JSON-based import and export. It carries the source texts, never a trained
// chain.
type ExportedCorpus struct {
	Name  string         `json:"name"`
	Order int            `json:"order"`
	Texts []ExportedText `json:"texts"`
}

// ExportedText is a single text within an ExportedCorpus.
type ExportedText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ExportCorpus serializes a corpus into JSON and writes it to w. This is
// useful for backups or for moving corpora between databases.
func (s *Store) ExportCorpus(ctx context.Context, info Info, w io.Writer) error {
	exported := ExportedCorpus{
		Name:  info.Name,
		Order: info.Order,
		Texts: make([]ExportedText, 0, info.Texts),
	}
	err := s.eachText(ctx, info, func(t Text) error {
		exported.Texts = append(exported.Texts, ExportedText{Title: t.Title, Body: t.Body})
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not read texts for export: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exported)
}

// ImportCorpus reads a corpus written by ExportCorpus and stores it under its
// exported name. The whole import runs in one transaction, so a failure leaves
// no partial corpus behind.
func (s *Store) ImportCorpus(ctx context.Context, r io.Reader) (Info, error) {
	var exported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return Info{}, fmt.Errorf("could not decode corpus: %w", err)
	}
	if !ValidName(exported.Name) {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidName, exported.Name)
	}
	if exported.Order < 1 {
		return Info{}, fmt.Errorf("%w: got %d", markov.ErrInvalidOrder, exported.Order)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	now := time.Now().Unix()
	id, err := insertCorpus(ctx, tx.StmtContext(ctx, s.stmtAddCorpus), exported.Name, exported.Order, now)
	if err != nil {
		return Info{}, err
	}

	addText := tx.StmtContext(ctx, s.stmtAddText)
	for i, t := range exported.Texts {
		if _, err := addText.ExecContext(ctx, id, t.Title, t.Body, now); err != nil {
			return Info{}, fmt.Errorf("could not insert text %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return Info{}, err
	}

	s.logger.InfoContext(ctx, "Corpus imported",
		slog.String("corpus_name", exported.Name),
		slog.Int("texts", len(exported.Texts)),
	)
	return s.GetCorpus(ctx, exported.Name)
}
