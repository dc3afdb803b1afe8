package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
)

type stubLifetimes struct{}

func (stubLifetimes) ShouldBeStale(*request.Request, *cache.Envelope) bool { return true }
func (stubLifetimes) WillRequest(*request.Request, *identifier.DocumentIdentifier, *Store) {
}
func (stubLifetimes) DidRequest(*request.Request, *request.Response, *identifier.DocumentIdentifier, *Store) {
}

func TestNew_UsesCacheResolver(t *testing.T) {
	resolver := identifier.NewResolver(nil)
	s := New(cache.NewMemoryCache(resolver))
	if s.Identifiers != resolver {
		t.Error("Identifiers should be the cache's resolver")
	}
}

func TestNew_WithIdentifiersOverrides(t *testing.T) {
	resolver := identifier.NewResolver(nil)
	s := New(cache.NewMemoryCache(nil), WithIdentifiers(resolver))
	if s.Identifiers != resolver {
		t.Error("WithIdentifiers should override the cache's resolver")
	}
}

func TestNewMemory(t *testing.T) {
	s := NewMemory(nil)
	if s.Cache == nil {
		t.Fatal("Cache should be set")
	}
	if s.Identifiers == nil {
		t.Fatal("Identifiers should be set")
	}
	if s.HasLifetimes() {
		t.Error("HasLifetimes() = true, want false")
	}
}

func TestHasLifetimes(t *testing.T) {
	s := NewMemory(nil, WithLifetimes(stubLifetimes{}))
	if !s.HasLifetimes() {
		t.Error("HasLifetimes() = false, want true")
	}
}

func TestJoin_ReleasesOnPanic(t *testing.T) {
	s := NewMemory(nil)

	func() {
		defer func() { _ = recover() }()
		s.Join(func() { panic("boom") })
	}()

	done := make(chan struct{})
	go func() {
		s.Join(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join did not release the lock after a panic")
	}
}

func TestJoin_ExcludesReaders(t *testing.T) {
	s := NewMemory(nil)

	var writing atomic.Bool
	var overlap atomic.Bool
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Join(func() {
				writing.Store(true)
				time.Sleep(time.Millisecond)
				writing.Store(false)
			})
		}()
		go func() {
			defer wg.Done()
			s.Read(func() {
				if writing.Load() {
					overlap.Store(true)
				}
			})
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Error("a reader observed a write in progress")
	}
}
