// Package persist stores serialized cache envelopes outside the process.
//
// Backends (memory, Redis, database/sql, pgx) share the Store interface so
// a cache can write responses through and warm itself up after a restart.
package persist

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for persistence operations.
var (
	ErrNilStore   = errors.New("persist: store is nil")
	ErrInvalidKey = errors.New("persist: key is invalid")
)

// Entry is one persisted envelope.
type Entry struct {
	Key string

	// Value is the serialized structured document.
	Value []byte

	// IsError marks an error envelope.
	IsError bool

	CreatedAt time.Time

	// ExpiresAt is zero for entries that never expire.
	ExpiresAt time.Time
}

// Expired reports whether the entry has expired at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store persists entries.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Get returns (nil, nil) when the key is missing or expired.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

// ttlOf returns the remaining lifetime of an entry, 0 meaning no expiry.
func ttlOf(e *Entry, now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl <= 0 {
		// already expired; keep it just long enough to be unobservable
		ttl = time.Millisecond
	}
	return ttl
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
