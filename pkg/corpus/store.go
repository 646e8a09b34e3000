package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/CTAG07/lipsum/pkg/markov"
)

var (
	// ErrCorpusNotFound is returned when a named corpus does not exist.
	ErrCorpusNotFound = fmt.Errorf("corpus not found: %w", sql.ErrNoRows)
	// ErrCorpusExists is returned when creating a corpus whose name is taken.
	ErrCorpusExists = errors.New("corpus already exists")
	// ErrInvalidName is returned for corpus names that are empty or contain
	// white space or slashes.
	ErrInvalidName = errors.New("invalid corpus name")
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS lipsum_corpora (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    corpus_order INTEGER NOT NULL,
    created_unix INTEGER NOT NULL
);
`
		schemaTexts = `
CREATE TABLE IF NOT EXISTS lipsum_texts (
    text_id INTEGER PRIMARY KEY,
    corpus_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    added_unix INTEGER NOT NULL
);
`
		indexTexts = `CREATE INDEX IF NOT EXISTS lipsum_texts_corpus ON lipsum_texts (corpus_id);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []string{schemaCorpora, schemaTexts, indexTexts} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Info holds the metadata of a stored corpus. Texts and Bytes are only filled
// in by ListCorpora and GetCorpus.
type Info struct {
	Id      int       `json:"id"`
	Name    string    `json:"name"`
	Order   int       `json:"order"`
	Created time.Time `json:"created"`
	Texts   int       `json:"texts"`
	Bytes   int       `json:"bytes"`
}

// Text is a single document stored in a corpus.
type Text struct {
	Id    int       `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	Added time.Time `json:"added"`
}

// Store is a library of named corpora kept in SQLite. It stores the raw
// training text only; chains are rebuilt from it with BuildChain.
type Store struct {
	db             *sql.DB
	stmtGetCorpus  *sql.Stmt
	stmtGetCorpora *sql.Stmt
	stmtAddCorpus  *sql.Stmt
	stmtAddText    *sql.Stmt
	stmtGetTexts   *sql.Stmt
	logger         *slog.Logger
}

const corpusColumns = `c.corpus_id, c.corpus_name, c.corpus_order, c.created_unix,
       COUNT(t.text_id), COALESCE(SUM(LENGTH(CAST(t.body AS BLOB))), 0)
  FROM lipsum_corpora c LEFT JOIN lipsum_texts t ON t.corpus_id = c.corpus_id`

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails. SetupSchema must
// have been called on db.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	prepared := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.stmtGetCorpus, `SELECT ` + corpusColumns + ` WHERE c.corpus_name = ? GROUP BY c.corpus_id;`},
		{&s.stmtGetCorpora, `SELECT ` + corpusColumns + ` GROUP BY c.corpus_id ORDER BY c.corpus_name;`},
		{&s.stmtAddCorpus, `INSERT INTO lipsum_corpora (corpus_name, corpus_order, created_unix) VALUES (?, ?, ?);`},
		{&s.stmtAddText, `INSERT INTO lipsum_texts (corpus_id, title, body, added_unix) VALUES (?, ?, ?, ?);`},
		{&s.stmtGetTexts, `SELECT text_id, title, body, added_unix FROM lipsum_texts WHERE corpus_id = ? ORDER BY text_id;`},
	}
	for _, p := range prepared {
		stmt, err := db.Prepare(p.query)
		if err != nil {
			s.Close()
			return nil, err
		}
		*p.stmt = stmt
	}
	return s, nil
}

// Close releases the prepared statements. It does not close the database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{s.stmtGetCorpus, s.stmtGetCorpora, s.stmtAddCorpus, s.stmtAddText, s.stmtGetTexts} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// ValidName reports whether name can be used for a corpus.
func ValidName(name string) bool {
	return name != "" && len(name) <= 64 && !strings.ContainsAny(name, "/\\ \t\r\n")
}

// CreateCorpus adds a new, empty corpus whose chains will have the given order.
func (s *Store) CreateCorpus(ctx context.Context, name string, order int) (Info, error) {
	if !ValidName(name) {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if order < 1 {
		return Info{}, fmt.Errorf("%w: got %d", markov.ErrInvalidOrder, order)
	}

	created := time.Now().Truncate(time.Second)
	id, err := insertCorpus(ctx, s.stmtAddCorpus, name, order, created.Unix())
	if err != nil {
		return Info{}, err
	}

	s.logger.InfoContext(ctx, "Corpus created",
		slog.String("corpus_name", name),
		slog.Int("corpus_order", order),
	)
	return Info{Id: int(id), Name: name, Order: order, Created: created}, nil
}

// insertCorpus inserts a corpus row through stmt and returns its id. The
// unique index on the name decides which of two concurrent creators wins; the
// loser gets ErrCorpusExists.
func insertCorpus(ctx context.Context, stmt *sql.Stmt, name string, order int, created int64) (int64, error) {
	res, err := stmt.ExecContext(ctx, name, order, created)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", ErrCorpusExists, name)
		}
		return 0, fmt.Errorf("could not insert corpus %q: %w", name, err)
	}
	return res.LastInsertId()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure. Both
// sqlite drivers report it with the same SQLite message.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetCorpus retrieves the metadata for a single corpus specified by name.
func (s *Store) GetCorpus(ctx context.Context, name string) (Info, error) {
	info, err := scanInfo(s.stmtGetCorpus.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, fmt.Errorf("%w: %q", ErrCorpusNotFound, name)
	}
	return info, err
}

// ListCorpora retrieves metadata for every corpus, ordered by name.
func (s *Store) ListCorpora(ctx context.Context) ([]Info, error) {
	rows, err := s.stmtGetCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make([]Info, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, info)
	}
	return corpora, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (Info, error) {
	var info Info
	var created int64
	if err := row.Scan(&info.Id, &info.Name, &info.Order, &created, &info.Texts, &info.Bytes); err != nil {
		return Info{}, err
	}
	info.Created = time.Unix(created, 0)
	return info, nil
}

// RemoveCorpus deletes a corpus and all of its texts. The operation is
// performed within a transaction.
func (s *Store) RemoveCorpus(ctx context.Context, info Info) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM lipsum_texts WHERE corpus_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove texts for corpus %d: %w", info.Id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM lipsum_corpora WHERE corpus_id = ?", info.Id)
	if err != nil {
		return fmt.Errorf("failed to remove corpus %d: %w", info.Id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrCorpusNotFound, info.Name)
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
	)
	return nil
}

// AddText stores body in the corpus and returns the new text's ID. Texts that
// hold no words are rejected, since they would not train anything.
func (s *Store) AddText(ctx context.Context, info Info, title, body string) (int, error) {
	if len(markov.Tokenize(body)) == 0 {
		return 0, errors.New("text contains no words")
	}
	res, err := s.stmtAddText.ExecContext(ctx, info.Id, title, body, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("could not insert text into corpus %q: %w", info.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	s.logger.DebugContext(ctx, "Text added",
		slog.String("corpus_name", info.Name),
		slog.String("title", title),
		slog.Int("bytes", len(body)),
	)
	return int(id), nil
}

// Texts returns every text of the corpus in insertion order.
func (s *Store) Texts(ctx context.Context, info Info) ([]Text, error) {
	texts := make([]Text, 0)
	err := s.eachText(ctx, info, func(t Text) error {
		texts = append(texts, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return texts, nil
}

func (s *Store) eachText(ctx context.Context, info Info, fn func(Text) error) error {
	rows, err := s.stmtGetTexts.QueryContext(ctx, info.Id)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var t Text
		var added int64
		if err := rows.Scan(&t.Id, &t.Title, &t.Body, &added); err != nil {
			return err
		}
		t.Added = time.Unix(added, 0)
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

// BuildChain trains a new chain of the corpus order on every stored text. Each
// text is trained separately, so no key spans two texts. An empty corpus
// yields an empty chain.
func (s *Store) BuildChain(ctx context.Context, info Info, opts ...markov.ChainOption) (*markov.Chain, error) {
	c, err := markov.NewChain(info.Order, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var texts int
	err = s.eachText(ctx, info, func(t Text) error {
		texts++
		if err := c.TrainReader(ctx, strings.NewReader(t.Body)); err != nil {
			return fmt.Errorf("training on text %d: %w", t.Id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Chain built",
		slog.String("corpus_name", info.Name),
		slog.Int("texts", texts),
		slog.Int("prefixes", c.Size()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}
