package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const createBlobTable = `
CREATE TABLE IF NOT EXISTS document_blobs (
    path       TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    size       BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps blobs in the document_blobs table.
type PostgresStore struct {
	connection *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens dsn, checks the connection and creates the table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createBlobTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create document_blobs: %w", err)
	}
	return &PostgresStore{connection: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.connection.Close()
}

// Write upserts so a retried upload with the same key does not fail.
func (s *PostgresStore) Write(ctx context.Context, key string, data []byte) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	query := `INSERT INTO document_blobs (path, data, size)
              VALUES ($1, $2, $3)
              ON CONFLICT (path) DO UPDATE
                SET data = EXCLUDED.data,
                    size = EXCLUDED.size`
	if _, err := s.connection.ExecContext(ctx, query, cleaned, data, len(data)); err != nil {
		return fmt.Errorf("write %s: %w", cleaned, err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.connection.QueryRowContext(ctx, `SELECT data FROM document_blobs WHERE path = $1`, cleaned).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cleaned, err)
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.connection.ExecContext(ctx, `DELETE FROM document_blobs WHERE path = $1`, cleaned); err != nil {
		return fmt.Errorf("delete %s: %w", cleaned, err)
	}
	return nil
}
