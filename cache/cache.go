package cache

import (
	"time"

	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
)

// Cache is the store of normalized documents and live records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use. Callers
//   group writes belonging to one response inside an atomic scope; the cache
//   itself only guarantees each call is consistent on its own.
// - Ownership: returned documents and envelopes must not be mutated. Records
//   are owned by the cache; callers read them through their accessors.
type Cache interface {
	// PeekRequest returns the envelope cached for id, or nil.
	PeekRequest(id *identifier.DocumentIdentifier) *Envelope

	// Peek returns the live record for ref, or nil when it is unknown.
	Peek(ref request.Ref) *Record

	// Put normalizes a successful document into the cache.
	Put(doc *request.StructuredDocument) *ResourceDocument

	// PutError caches an error document for the request that failed.
	PutError(err *request.StructuredError) *ErrorDocument

	// WillCommit marks ref as having a commit in flight for req.
	WillCommit(ref request.Ref, req *request.Request)

	// DidCommit applies the response of a successful commit to ref. It
	// returns nil when the response had no content.
	DidCommit(ref request.Ref, doc *request.StructuredDocument) *ResourceDocument

	// CommitWasRejected ends the in-flight commit of ref with errs.
	CommitWasRejected(ref request.Ref, errs []request.APIError)
}

// Primary is the primary data of a normalized document: one reference, an
// ordered list of references, or null.
type Primary struct {
	One  *request.Ref
	Many []request.Ref
	List bool
}

// IsNull reports whether there is no primary data.
func (p Primary) IsNull() bool {
	return !p.List && p.One == nil
}

// ResourceDocument is a response in cache-native form.
type ResourceDocument struct {
	Identifier *identifier.DocumentIdentifier
	Data       Primary
	Included   []request.Ref
	Links      map[string]string
	Meta       map[string]any
}

// ErrorDocument is a failed response in cache-native form.
type ErrorDocument struct {
	Identifier *identifier.DocumentIdentifier
	Errors     []request.APIError
	Links      map[string]string
	Meta       map[string]any
}

// Envelope is what the cache holds for a document identifier. Exactly one
// of Content and Error is set.
type Envelope struct {
	Request  *request.Request
	Response *request.Response
	Content  *ResourceDocument
	Error    *ErrorDocument
	StoredAt time.Time
}

// IsError reports whether the envelope records a failed request.
func (e *Envelope) IsError() bool {
	return e != nil && e.Error != nil
}

// Age returns how long ago the envelope was stored.
func (e *Envelope) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
