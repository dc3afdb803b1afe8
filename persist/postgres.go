package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &PostgresStore{pool: pool, tableName: tableName}
}

// NewPostgresStoreFromURL opens a pool for connString.
func NewPostgresStoreFromURL(ctx context.Context, connString, tableName string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to open postgres pool: %w", err)
	}
	return NewPostgresStore(pool, tableName), nil
}

// InitSchema creates the table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key TEXT PRIMARY KEY,
			value BYTEA,
			is_error BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ
		)`, s.tableName)
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	query := fmt.Sprintf(`
		SELECT value, is_error, created_at, expires_at
		FROM %s
		WHERE cache_key = $1
		  AND (expires_at IS NULL OR expires_at > $2)`, s.tableName)

	var (
		value     []byte
		isError   bool
		createdAt time.Time
		expiresAt *time.Time
	)
	err := s.pool.QueryRow(ctx, query, key, time.Now()).Scan(&value, &isError, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: failed to get key %s: %w", key, err)
	}

	e := &Entry{Key: key, Value: value, IsError: isError, CreatedAt: createdAt}
	if expiresAt != nil {
		e.ExpiresAt = *expiresAt
	}
	return e, nil
}

func (s *PostgresStore) Set(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Key == "" {
		return ErrInvalidKey
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (cache_key, value, is_error, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(cache_key) DO UPDATE SET
			value = excluded.value,
			is_error = excluded.is_error,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`, s.tableName)

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var expires *time.Time
	if !entry.ExpiresAt.IsZero() {
		t := entry.ExpiresAt
		expires = &t
	}

	_, err := s.pool.Exec(ctx, query, entry.Key, entry.Value, entry.IsError, created, expires)
	if err != nil {
		return fmt.Errorf("persist: failed to set key %s: %w", entry.Key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil)
