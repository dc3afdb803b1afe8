package lifetimes

import (
	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// Func adapts a staleness function into a lifetime policy with no-op
// request notifications.
type Func func(req *request.Request, env *cache.Envelope) bool

func (f Func) ShouldBeStale(req *request.Request, env *cache.Envelope) bool {
	return f(req, env)
}

func (Func) WillRequest(*request.Request, *identifier.DocumentIdentifier, *store.Store) {}

func (Func) DidRequest(*request.Request, *request.Response, *identifier.DocumentIdentifier, *store.Store) {}

// Always returns a policy under which every cached envelope is stale.
func Always() Func {
	return func(*request.Request, *cache.Envelope) bool { return true }
}

// Never returns a policy under which no cached envelope is stale.
func Never() Func {
	return func(*request.Request, *cache.Envelope) bool { return false }
}

var _ store.Lifetimes = Func(nil)
