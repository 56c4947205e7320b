package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"weatherbet/database"
)

const upsertDocument = `
	INSERT INTO kv_documents (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// PostgresStore persists documents in the kv_documents table
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store on top of a migrated database
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the value for key and whether it exists
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM kv_documents WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get "+key, err)
	}
	return value, true, nil
}

// Set upserts a single document
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.Exec(ctx, upsertDocument, key, value); err != nil {
		return unavailable("set "+key, err)
	}
	return nil
}

// SetMany upserts every document in one transaction
func (s *PostgresStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for k, v := range entries {
		batch.Queue(upsertDocument, k, v)
	}
	if err := s.db.ExecBatch(ctx, batch); err != nil {
		return unavailable("write documents", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
