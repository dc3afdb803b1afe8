package identifier

import (
	"sync"

	"github.com/jonwraymond/docstore/request"
)

// DocumentIdentifier is the stable key of a cacheable request. Identifiers
// are pointer-stable: a Resolver hands out the same pointer for the same key.
type DocumentIdentifier struct {
	LID string
}

func (d *DocumentIdentifier) String() string {
	if d == nil {
		return ""
	}
	return d.LID
}

// Resolver maps requests to document identifiers.
//
// Contract:
// - Determinism: cache-equivalent requests resolve to the same identifier.
// - Nil result: mutations, requests that skip the cache, and requests whose
//   key cannot be derived resolve to nil.
// - Concurrency: implementations must be safe for concurrent use.
type Resolver interface {
	GetOrCreateDocumentIdentifier(req *request.Request) *DocumentIdentifier
}

// DefaultResolver resolves identifiers through a Keyer and interns them.
type DefaultResolver struct {
	keyer Keyer

	mu  sync.Mutex
	ids map[string]*DocumentIdentifier
}

// NewResolver creates a resolver. If keyer is nil, a HashKeyer is used.
func NewResolver(keyer Keyer) *DefaultResolver {
	if keyer == nil {
		keyer = NewHashKeyer()
	}
	return &DefaultResolver{
		keyer: keyer,
		ids:   make(map[string]*DocumentIdentifier),
	}
}

// GetOrCreateDocumentIdentifier returns the identifier for req, or nil when
// req is not cacheable.
func (r *DefaultResolver) GetOrCreateDocumentIdentifier(req *request.Request) *DocumentIdentifier {
	if req == nil || req.CacheOptions.SkipCache || req.Kind() == request.KindMutation {
		return nil
	}

	key := req.CacheOptions.Key
	if key == "" {
		k, err := r.keyer.Key(req)
		if err != nil {
			return nil
		}
		key = k
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[key]; ok {
		return id
	}
	id := &DocumentIdentifier{LID: key}
	r.ids[key] = id
	return id
}

// Lookup returns the interned identifier for key, if any.
func (r *DefaultResolver) Lookup(key string) (*DocumentIdentifier, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[key]
	return id, ok
}

var _ Resolver = (*DefaultResolver)(nil)
