package handler

import (
	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// shouldFetch decides whether req must go to the transport given the
// envelope cached for it, if any.
func shouldFetch(s *store.Store, req *request.Request, env *cache.Envelope) bool {
	switch {
	case req.Kind() == request.KindMutation:
		return true
	case req.CacheOptions.SkipCache:
		return true
	case req.CacheOptions.Reload:
		return true
	case env == nil:
		return true
	case s.HasLifetimes():
		return s.Lifetimes.ShouldBeStale(req, env)
	default:
		// No policy: a cached envelope stays valid until reloaded.
		return false
	}
}
