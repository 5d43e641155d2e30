package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/sqlite"
)

// Store keeps document text for snippet rendering. Get returns an error
// wrapping apperrors.ErrDocumentNotFound for unknown ids.
type Store interface {
	Put(ctx context.Context, docs []Document) error
	Get(ctx context.Context, id index.DocID) (Document, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// OpenStore builds the store selected by cfg.Corpus.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Corpus.Store {
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, client)
	case "sqlite", "":
		return NewSQLiteStore(cfg.Corpus.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: unknown corpus store %q", apperrors.ErrInvalidInput, cfg.Corpus.Store)
	}
}

// MemoryStore is a map-backed Store used by tests and small corpora.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[index.DocID]Document
}

func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{docs: make(map[index.DocID]Document, len(docs))}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id index.DocID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %d", apperrors.ErrDocumentNotFound, id)
	}
	return d, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) Close() error { return nil }

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id   INTEGER PRIMARY KEY,
	text TEXT NOT NULL
);`

// SQLiteStore persists documents in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqliteSchema)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "doc-store", "backend", "sqlite"),
	}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO documents (id, text) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, int64(d.ID), d.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting document %d: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing documents: %w", err)
	}
	s.logger.Debug("documents stored", "count", len(docs))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id index.DocID) (Document, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM documents WHERE id = ?`, int64(id)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %d", apperrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("fetching document %d: %w", id, err)
	}
	return Document{ID: id, Text: text}, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id   BIGINT PRIMARY KEY,
	text TEXT NOT NULL
)`

// PostgresStore persists documents in PostgreSQL.
type PostgresStore struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if _, err := client.DB.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &PostgresStore{
		client: client,
		logger: slog.Default().With("component", "doc-store", "backend", "postgres"),
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, docs []Document) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO documents (id, text) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range docs {
			if _, err := stmt.ExecContext(ctx, int64(d.ID), d.Text); err != nil {
				return fmt.Errorf("inserting document %d: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("documents stored", "count", len(docs))
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id index.DocID) (Document, error) {
	var text string
	err := s.client.DB.QueryRowContext(ctx, `SELECT text FROM documents WHERE id = $1`, int64(id)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %d", apperrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("fetching document %d: %w", id, err)
	}
	return Document{ID: id, Text: text}, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.client.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}
