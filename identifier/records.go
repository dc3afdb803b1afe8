package identifier

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jonwraymond/docstore/request"
)

// ErrUnknownRecord indicates a lid that was never allocated.
var ErrUnknownRecord = errors.New("identifier: unknown record")

// RecordIdentifiers allocates stable lids for record references.
//
// A record known by type and id gets "@lid:<type>-<id>". A record created
// locally gets "@lid:<type>-<uuid>" and keeps that lid after the server
// assigns an id.
type RecordIdentifiers struct {
	mu     sync.RWMutex
	byKey  map[string]string // type:id -> lid
	byLID  map[string]request.Ref
	newLID func(resourceType string) string
}

// NewRecordIdentifiers creates an empty allocator.
func NewRecordIdentifiers() *RecordIdentifiers {
	return &RecordIdentifiers{
		byKey: make(map[string]string),
		byLID: make(map[string]request.Ref),
		newLID: func(t string) string {
			return "@lid:" + t + "-" + uuid.NewString()
		},
	}
}

// GetOrCreate returns ref with its lid filled in, allocating one if needed.
func (ri *RecordIdentifiers) GetOrCreate(ref request.Ref) request.Ref {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ref.LID != "" {
		if known, ok := ri.byLID[ref.LID]; ok {
			if known.ID == "" && ref.ID != "" {
				known.ID = ref.ID
				ri.byLID[ref.LID] = known
				ri.byKey[typeKey(known.Type, ref.ID)] = ref.LID
			}
			return known
		}
		if ref.ID != "" {
			if lid, ok := ri.byKey[typeKey(ref.Type, ref.ID)]; ok {
				return ri.byLID[lid]
			}
			ri.byKey[typeKey(ref.Type, ref.ID)] = ref.LID
		}
		ri.byLID[ref.LID] = ref
		return ref
	}

	if ref.ID != "" {
		key := typeKey(ref.Type, ref.ID)
		if lid, ok := ri.byKey[key]; ok {
			return ri.byLID[lid]
		}
		ref.LID = "@lid:" + ref.Type + "-" + ref.ID
		ri.byKey[key] = ref.LID
		ri.byLID[ref.LID] = ref
		return ref
	}

	ref.LID = ri.newLID(ref.Type)
	ri.byLID[ref.LID] = ref
	return ref
}

// Peek returns the canonical reference for ref without allocating.
func (ri *RecordIdentifiers) Peek(ref request.Ref) (request.Ref, bool) {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	if ref.LID != "" {
		known, ok := ri.byLID[ref.LID]
		return known, ok
	}
	if ref.ID != "" {
		if lid, ok := ri.byKey[typeKey(ref.Type, ref.ID)]; ok {
			return ri.byLID[lid], true
		}
	}
	return request.Ref{}, false
}

// AssignID records the server id of a locally created record.
func (ri *RecordIdentifiers) AssignID(lid, id string) (request.Ref, error) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	ref, ok := ri.byLID[lid]
	if !ok {
		return request.Ref{}, ErrUnknownRecord
	}
	ref.ID = id
	ri.byLID[lid] = ref
	ri.byKey[typeKey(ref.Type, id)] = lid
	return ref, nil
}

func typeKey(t, id string) string {
	return t + ":" + id
}
