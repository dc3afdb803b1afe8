package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLDialect selects placeholder and upsert syntax.
type SQLDialect string

const (
	DialectSQLite   SQLDialect = "sqlite"
	DialectPostgres SQLDialect = "postgres"
	DialectMySQL    SQLDialect = "mysql"
)

// DefaultTableName is used when no table name is given.
const DefaultTableName = "docstore_envelopes"

// SQLStore implements Store on database/sql. The caller opens the *sql.DB
// with the driver of their choice.
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
}

// NewSQLStore creates a SQL-backed store.
func NewSQLStore(db *sql.DB, tableName string, dialect SQLDialect) *SQLStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &SQLStore{db: db, tableName: tableName, dialect: dialect}
}

// InitSchema creates the table if it does not exist.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	blobType := "BLOB"
	keyType := "TEXT"
	switch s.dialect {
	case DialectPostgres:
		blobType = "BYTEA"
	case DialectMySQL:
		blobType = "LONGBLOB"
		keyType = "VARCHAR(512)"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key %s PRIMARY KEY,
			value %s,
			is_error INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0
		)`, s.tableName, keyType, blobType)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLStore) placeholders(n int) []string {
	ph := make([]string, n)
	for i := range ph {
		if s.dialect == DialectPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return ph
}

func (s *SQLStore) Get(ctx context.Context, key string) (*Entry, error) {
	ph := s.placeholders(2)
	query := fmt.Sprintf(`
		SELECT value, is_error, created_at, expires_at
		FROM %s
		WHERE cache_key = %s
		  AND (expires_at = 0 OR expires_at > %s)`, s.tableName, ph[0], ph[1])

	var (
		value              []byte
		isError            int
		created, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, query, key, time.Now().UnixMilli()).
		Scan(&value, &isError, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: failed to get key %s: %w", key, err)
	}

	return &Entry{
		Key:       key,
		Value:     value,
		IsError:   isError != 0,
		CreatedAt: fromUnixMillis(created),
		ExpiresAt: fromUnixMillis(expiresAt),
	}, nil
}

func (s *SQLStore) Set(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Key == "" {
		return ErrInvalidKey
	}
	phStr := strings.Join(s.placeholders(5), ", ")

	var query string
	if s.dialect == DialectMySQL {
		query = fmt.Sprintf(`
			INSERT INTO %s (cache_key, value, is_error, created_at, expires_at)
			VALUES (%s)
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				is_error = VALUES(is_error),
				created_at = VALUES(created_at),
				expires_at = VALUES(expires_at)`, s.tableName, phStr)
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (cache_key, value, is_error, created_at, expires_at)
			VALUES (%s)
			ON CONFLICT(cache_key) DO UPDATE SET
				value = excluded.value,
				is_error = excluded.is_error,
				created_at = excluded.created_at,
				expires_at = excluded.expires_at`, s.tableName, phStr)
	}

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	isError := 0
	if entry.IsError {
		isError = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.Key,
		entry.Value,
		isError,
		unixMillis(created),
		unixMillis(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("persist: failed to set key %s: %w", entry.Key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", s.tableName, s.placeholders(1)[0])
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ Store = (*SQLStore)(nil)
