package request

import (
	"context"
	"maps"
	"slices"
)

// Op names the operation a Request performs.
type Op string

// Known operations. Any other value is treated as a generic read.
const (
	OpFindRecord   Op = "findRecord"
	OpFindAll      Op = "findAll"
	OpQuery        Op = "query"
	OpQueryRecord  Op = "queryRecord"
	OpCreateRecord Op = "createRecord"
	OpUpdateRecord Op = "updateRecord"
	OpDeleteRecord Op = "deleteRecord"
)

// IsMutation reports whether the operation commits a change to a record.
func (o Op) IsMutation() bool {
	switch o {
	case OpCreateRecord, OpUpdateRecord, OpDeleteRecord:
		return true
	default:
		return false
	}
}

// Kind is the coarse variant of a Request that the cache handler branches on.
type Kind int

const (
	// KindQuery covers every read: finds, queries and generic requests.
	KindQuery Kind = iota
	// KindMutation covers create, update and delete.
	KindMutation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// Ref references a record by identity.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	LID  string `json:"lid,omitempty"`
}

// String returns type:id, falling back to the lid for unsaved records.
func (r Ref) String() string {
	if r.ID != "" {
		return r.Type + ":" + r.ID
	}
	return r.Type + ":" + r.LID
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == "" && r.LID == ""
}

// CacheOptions controls how a Request interacts with the cache.
type CacheOptions struct {
	// SkipCache bypasses cache handling entirely.
	SkipCache bool `json:"-"`

	// Reload forces a fetch even when a cached response exists.
	Reload bool `json:"reload,omitempty"`

	// BackgroundReload asks for a refresh. There is no background lane here,
	// so a stale-aware lifetime policy treats it like Reload.
	BackgroundReload bool `json:"backgroundReload,omitempty"`

	// Key overrides the derived document identifier.
	Key string `json:"key,omitempty"`
}

// Data carries the operation-specific part of a Request.
type Data struct {
	Record  *Ref           `json:"record,omitempty"`
	Type    string         `json:"type,omitempty"`
	Query   map[string]any `json:"query,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Request describes one operation. Requests are treated as immutable once
// handed to a handler; builders return fresh values.
type Request struct {
	Op           Op                `json:"op"`
	URL          string            `json:"url,omitempty"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Records      []Ref             `json:"records,omitempty"`
	Data         Data              `json:"data"`
	CacheOptions CacheOptions      `json:"cacheOptions"`
}

// Kind returns the variant of the request.
func (r *Request) Kind() Kind {
	if r.Op.IsMutation() {
		return KindMutation
	}
	return KindQuery
}

// Record resolves the single record a request targets: the explicit
// Data.Record, else the first of Records.
func (r *Request) Record() (Ref, bool) {
	if r.Data.Record != nil && !r.Data.Record.IsZero() {
		return *r.Data.Record, true
	}
	if len(r.Records) > 0 && !r.Records[0].IsZero() {
		return r.Records[0], true
	}
	return Ref{}, false
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = maps.Clone(r.Headers)
	c.Records = slices.Clone(r.Records)
	if r.Data.Record != nil {
		ref := *r.Data.Record
		c.Data.Record = &ref
	}
	c.Data.Query = maps.Clone(r.Data.Query)
	c.Data.Options = maps.Clone(r.Data.Options)
	return &c
}

// Skip returns a copy of the request with cache handling bypassed.
func (r *Request) Skip() *Request {
	c := r.Clone()
	c.CacheOptions.SkipCache = true
	return c
}

// NextFunc hands a request to the next handler in the chain, usually the
// transport. It must produce exactly one document or one error.
type NextFunc func(ctx context.Context, req *Request) (*StructuredDocument, error)
