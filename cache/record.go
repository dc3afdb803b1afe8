package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/jonwraymond/docstore/request"
)

// State is the commit state of a record.
type State int

const (
	// StateClean means the record matches the last known server state.
	StateClean State = iota
	// StateInFlight means a commit has been sent and not yet settled.
	StateInFlight
	// StateInvalid means the last commit was rejected with field errors.
	StateInvalid
	// StateRejected means the last commit failed without field errors.
	StateRejected
	// StateDeleted means a delete was committed.
	StateDeleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateInFlight:
		return "in-flight"
	case StateInvalid:
		return "invalid"
	case StateRejected:
		return "rejected"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Record is the live object for one record identity. The cache updates it
// in place, so every holder of the pointer observes the latest state.
type Record struct {
	mu            sync.RWMutex
	ref           request.Ref
	attributes    map[string]any
	relationships map[string]any
	meta          map[string]any
	state         State
	isNew         bool
	errors        []request.APIError
	inflight      *request.Request
}

func newRecord(ref request.Ref) *Record {
	return &Record{
		ref:        ref,
		attributes: map[string]any{},
		isNew:      ref.ID == "",
	}
}

// Ref returns the record's identity.
func (r *Record) Ref() request.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ref
}

// Attr returns a single attribute.
func (r *Record) Attr(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.attributes[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (r *Record) Attributes() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.attributes)
}

// Relationships returns a copy of the relationship payloads.
func (r *Record) Relationships() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.relationships)
}

// State returns the commit state.
func (r *Record) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// IsNew reports whether the record has never been saved.
func (r *Record) IsNew() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isNew
}

// Errors returns the field errors of the last rejected commit.
func (r *Record) Errors() []request.APIError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.errors)
}

// merge applies a wire resource on top of the current state.
func (r *Record) merge(res request.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID != "" {
		r.ref.ID = res.ID
	}
	maps.Copy(r.attributes, res.Attributes)
	if res.Relationships != nil {
		if r.relationships == nil {
			r.relationships = map[string]any{}
		}
		maps.Copy(r.relationships, res.Relationships)
	}
	if res.Meta != nil {
		r.meta = maps.Clone(res.Meta)
	}
}

func (r *Record) setID(id string) {
	r.mu.Lock()
	r.ref.ID = id
	r.mu.Unlock()
}

func (r *Record) beginCommit(req *request.Request) {
	r.mu.Lock()
	r.state = StateInFlight
	r.inflight = req
	r.errors = nil
	r.mu.Unlock()
}

func (r *Record) commitSucceeded(deleted bool) {
	r.mu.Lock()
	r.inflight = nil
	r.errors = nil
	r.isNew = false
	if deleted {
		r.state = StateDeleted
	} else {
		r.state = StateClean
	}
	r.mu.Unlock()
}

func (r *Record) commitRejected(errs []request.APIError) {
	r.mu.Lock()
	r.inflight = nil
	r.errors = slices.Clone(errs)
	if len(errs) > 0 {
		r.state = StateInvalid
	} else {
		r.state = StateRejected
	}
	r.mu.Unlock()
}
