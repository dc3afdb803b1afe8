package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	// registers the pure-Go "sqlite" database/sql driver
	_ "github.com/glebarez/go-sqlite"

	"github.com/jonwraymond/docstore/secret"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ValidBackends lists valid backend names.
var ValidBackends = []string{BackendMemory, BackendRedis, BackendPostgres, BackendSQLite}

// ErrInvalidBackend indicates an unknown backend name.
var ErrInvalidBackend = errors.New("persist: invalid backend")

// ErrMissingURL indicates a networked or file backend without a URL.
var ErrMissingURL = errors.New("persist: url is required")

// Config selects and locates a backend.
type Config struct {
	// Backend is one of ValidBackends.
	Backend string

	// URL is the connection string: a redis:// URL, a postgres DSN, or a
	// sqlite file name. It may contain ${VAR} and secretref: references.
	URL string

	// Table names the SQL table. Default: DefaultTableName
	Table string

	// Prefix namespaces Redis keys.
	Prefix string
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidBackends, c.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
	if c.Backend != BackendMemory && c.URL == "" {
		return fmt.Errorf("%w for backend %q", ErrMissingURL, c.Backend)
	}
	return nil
}

// Open creates the configured store, resolving credentials in cfg.URL with
// secrets. SQL backends get their schema created.
func Open(ctx context.Context, cfg Config, secrets *secret.Resolver) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendMemory {
		return NewMemoryStore(), nil
	}

	url, err := secrets.ResolveValue(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to resolve url: %w", err)
	}

	switch cfg.Backend {
	case BackendRedis:
		s, err := NewRedisStoreFromURL(url, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return s, nil

	case BackendPostgres:
		s, err := NewPostgresStoreFromURL(ctx, url, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("persist: failed to create schema: %w", err)
		}
		return s, nil

	default:
		db, err := sql.Open("sqlite", url)
		if err != nil {
			return nil, fmt.Errorf("persist: failed to open sqlite: %w", err)
		}
		s := NewSQLStore(db, cfg.Table, DialectSQLite)
		if err := s.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("persist: failed to create schema: %w", err)
		}
		return s, nil
	}
}
