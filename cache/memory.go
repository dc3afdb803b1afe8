package cache

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/observe"
	"github.com/jonwraymond/docstore/persist"
	"github.com/jonwraymond/docstore/request"
)

// DefaultPersistTimeout bounds each persisted write or restore call.
const DefaultPersistTimeout = 2 * time.Second

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithPersistence writes envelopes behind to p and restores them on a
// PeekRequest miss. A positive ttl sets the persisted entries' expiry.
// Writes run outside the cache lock; Flush waits for them.
func WithPersistence(p persist.Store, ttl time.Duration) Option {
	return func(c *MemoryCache) {
		c.persist = p
		c.persistTTL = ttl
	}
}

// WithPersistTimeout overrides DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) Option {
	return func(c *MemoryCache) {
		if d > 0 {
			c.persistTimeout = d
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l observe.Logger) Option {
	return func(c *MemoryCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecordIdentifiers shares a record identifier allocator.
func WithRecordIdentifiers(ri *identifier.RecordIdentifiers) Option {
	return func(c *MemoryCache) {
		if ri != nil {
			c.records = ri
		}
	}
}

// MemoryCache is an in-memory normalizing Cache.
type MemoryCache struct {
	mu       sync.RWMutex
	byLID    map[string]*Record
	requests map[string]*Envelope

	documents identifier.Resolver
	records   *identifier.RecordIdentifiers

	persist        persist.Store
	persistTTL     time.Duration
	persistTimeout time.Duration

	// pending holds the latest unwritten entry per key.
	wmu      sync.Mutex
	pending  map[string]*persist.Entry
	draining bool
	drained  chan struct{}

	logger observe.Logger
	now    func() time.Time
}

// NewMemoryCache creates an empty cache. documents resolves the identifier
// under which Put and PutError store envelopes; if nil, a default resolver
// is used.
func NewMemoryCache(documents identifier.Resolver, opts ...Option) *MemoryCache {
	if documents == nil {
		documents = identifier.NewResolver(nil)
	}
	c := &MemoryCache{
		byLID:          make(map[string]*Record),
		requests:       make(map[string]*Envelope),
		documents:      documents,
		records:        identifier.NewRecordIdentifiers(),
		pending:        make(map[string]*persist.Entry),
		persistTimeout: DefaultPersistTimeout,
		logger:         observe.NopLogger(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver returns the document identifier resolver.
func (c *MemoryCache) Resolver() identifier.Resolver {
	return c.documents
}

// Len returns the number of live records.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byLID)
}

// CreateRecord creates a new local record that has no server id yet.
func (c *MemoryCache) CreateRecord(resourceType string, attrs map[string]any) *Record {
	ref := c.records.GetOrCreate(request.Ref{Type: request.NormalizeType(resourceType)})

	c.mu.Lock()
	defer c.mu.Unlock()
	rec := newRecord(ref)
	maps.Copy(rec.attributes, attrs)
	c.byLID[ref.LID] = rec
	return rec
}

func (c *MemoryCache) PeekRequest(id *identifier.DocumentIdentifier) *Envelope {
	if id == nil {
		return nil
	}

	c.mu.RLock()
	env, ok := c.requests[id.LID]
	c.mu.RUnlock()
	if ok || c.persist == nil {
		return env
	}

	entry, pe, ok := c.restore(id)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if env, ok := c.requests[id.LID]; ok {
		return env
	}
	env = &Envelope{Request: pe.Request, Response: pe.Response, StoredAt: entry.CreatedAt}
	if entry.IsError {
		env.Error = &ErrorDocument{Identifier: id, Errors: pe.Errors, Links: pe.Links, Meta: pe.Meta}
	} else {
		env.Content = c.normalizeLocked(pe.Content)
		env.Content.Identifier = id
	}
	c.requests[id.LID] = env
	return env
}

func (c *MemoryCache) Peek(ref request.Ref) *Record {
	canonical, ok := c.records.Peek(ref)
	if !ok {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byLID[canonical.LID]
}

func (c *MemoryCache) Put(doc *request.StructuredDocument) *ResourceDocument {
	if doc == nil {
		return nil
	}

	c.mu.Lock()
	rd := c.normalizeLocked(doc.Content)
	id := c.documents.GetOrCreateDocumentIdentifier(doc.Request)
	rd.Identifier = id
	now := c.now()
	if id != nil {
		c.requests[id.LID] = &Envelope{
			Request:  doc.Request,
			Response: doc.Response,
			Content:  rd,
			StoredAt: now,
		}
	}
	c.mu.Unlock()

	if id != nil {
		c.writeBehind(id, persistedEnvelope{
			Request:  doc.Request,
			Response: doc.Response,
			Content:  doc.Content,
		}, false, now)
	}
	return rd
}

func (c *MemoryCache) PutError(se *request.StructuredError) *ErrorDocument {
	if se == nil {
		return nil
	}

	ed := &ErrorDocument{Errors: request.ExtractErrors(se.Content)}
	if p, ok := se.Content.(*request.Payload); ok && p != nil {
		ed.Links = maps.Clone(p.Links)
		ed.Meta = maps.Clone(p.Meta)
	}

	c.mu.Lock()
	id := c.documents.GetOrCreateDocumentIdentifier(se.Request)
	ed.Identifier = id
	now := c.now()
	if id != nil {
		c.requests[id.LID] = &Envelope{
			Request:  se.Request,
			Response: se.Response,
			Error:    ed,
			StoredAt: now,
		}
	}
	c.mu.Unlock()

	if id != nil {
		c.writeBehind(id, persistedEnvelope{
			Request:  se.Request,
			Response: se.Response,
			Errors:   ed.Errors,
			Links:    ed.Links,
			Meta:     ed.Meta,
		}, true, now)
	}
	return ed
}

func (c *MemoryCache) WillCommit(ref request.Ref, req *request.Request) {
	c.mu.Lock()
	rec := c.upsertLocked(ref)
	c.mu.Unlock()
	rec.beginCommit(req)
}

func (c *MemoryCache) DidCommit(ref request.Ref, doc *request.StructuredDocument) *ResourceDocument {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.upsertLocked(ref)
	deleted := doc != nil && doc.Request != nil && doc.Request.Op == request.OpDeleteRecord

	var content *request.Payload
	if doc != nil {
		content = doc.Content
	}

	if content != nil && content.Data.One != nil {
		res := *content.Data.One
		current := rec.Ref()
		if current.ID == "" && res.ID != "" {
			if _, err := c.records.AssignID(current.LID, res.ID); err == nil {
				rec.setID(res.ID)
			}
		}
		res.LID = current.LID
		rec.merge(res)
	}
	rec.commitSucceeded(deleted)

	if content == nil {
		return nil
	}

	rd := &ResourceDocument{
		Links: maps.Clone(content.Links),
		Meta:  maps.Clone(content.Meta),
	}
	committed := rec.Ref()
	rd.Data = Primary{One: &committed}
	for _, inc := range content.Included {
		rd.Included = append(rd.Included, c.upsertResourceLocked(inc))
	}
	return rd
}

func (c *MemoryCache) CommitWasRejected(ref request.Ref, errs []request.APIError) {
	c.mu.Lock()
	rec := c.upsertLocked(ref)
	c.mu.Unlock()
	rec.commitRejected(errs)
}

// upsertLocked returns the live record for ref, creating it when needed.
func (c *MemoryCache) upsertLocked(ref request.Ref) *Record {
	canonical := c.records.GetOrCreate(ref)
	rec, ok := c.byLID[canonical.LID]
	if !ok {
		rec = newRecord(canonical)
		c.byLID[canonical.LID] = rec
	}
	return rec
}

func (c *MemoryCache) upsertResourceLocked(res request.Resource) request.Ref {
	rec := c.upsertLocked(res.Ref())
	rec.merge(res)
	return rec.Ref()
}

func (c *MemoryCache) normalizeLocked(p *request.Payload) *ResourceDocument {
	rd := &ResourceDocument{}
	if p == nil {
		return rd
	}
	rd.Links = maps.Clone(p.Links)
	rd.Meta = maps.Clone(p.Meta)

	switch {
	case p.Data.List:
		rd.Data.List = true
		rd.Data.Many = make([]request.Ref, 0, len(p.Data.Many))
		for _, res := range p.Data.Many {
			rd.Data.Many = append(rd.Data.Many, c.upsertResourceLocked(res))
		}
	case p.Data.One != nil:
		ref := c.upsertResourceLocked(*p.Data.One)
		rd.Data.One = &ref
	}

	for _, inc := range p.Included {
		rd.Included = append(rd.Included, c.upsertResourceLocked(inc))
	}
	return rd
}

// persistedEnvelope is the serialized form written to a persist.Store.
type persistedEnvelope struct {
	Request  *request.Request   `json:"request,omitempty"`
	Response *request.Response  `json:"response,omitempty"`
	Content  *request.Payload   `json:"content,omitempty"`
	Errors   []request.APIError `json:"errors,omitempty"`
	Links    map[string]string  `json:"links,omitempty"`
	Meta     map[string]any     `json:"meta,omitempty"`
}

// Flush waits until every pending persisted write has been attempted.
func (c *MemoryCache) Flush(ctx context.Context) error {
	for {
		c.wmu.Lock()
		if !c.draining {
			c.wmu.Unlock()
			return nil
		}
		drained := c.drained
		c.wmu.Unlock()

		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeBehind queues the envelope for persistence. A newer envelope for the
// same key replaces one that has not been written yet.
func (c *MemoryCache) writeBehind(id *identifier.DocumentIdentifier, pe persistedEnvelope, isError bool, now time.Time) {
	if c.persist == nil {
		return
	}
	value, err := json.Marshal(pe)
	if err != nil {
		c.logger.Warn(context.Background(), "failed to encode envelope", observe.F("document", id.LID), observe.F("error", err))
		return
	}
	entry := &persist.Entry{Key: id.LID, Value: value, IsError: isError, CreatedAt: now}
	if c.persistTTL > 0 {
		entry.ExpiresAt = now.Add(c.persistTTL)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.pending[id.LID] = entry
	if !c.draining {
		c.draining = true
		c.drained = make(chan struct{})
		go c.drain()
	}
}

// drain writes pending entries until none are left.
func (c *MemoryCache) drain() {
	for {
		c.wmu.Lock()
		if len(c.pending) == 0 {
			c.draining = false
			close(c.drained)
			c.wmu.Unlock()
			return
		}
		batch := c.pending
		c.pending = make(map[string]*persist.Entry)
		c.wmu.Unlock()

		for _, entry := range batch {
			c.store(entry)
		}
	}
}

func (c *MemoryCache) store(entry *persist.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
	defer cancel()
	if err := c.persist.Set(ctx, entry); err != nil {
		c.logger.Warn(ctx, "failed to persist envelope", observe.F("document", entry.Key), observe.F("error", err))
	}
}

// restore loads and decodes the persisted envelope for id without holding
// the cache lock.
func (c *MemoryCache) restore(id *identifier.DocumentIdentifier) (*persist.Entry, persistedEnvelope, bool) {
	var pe persistedEnvelope
	ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
	defer cancel()

	entry, err := c.persist.Get(ctx, id.LID)
	if err != nil {
		c.logger.Warn(ctx, "failed to restore envelope", observe.F("document", id.LID), observe.F("error", err))
		return nil, pe, false
	}
	if entry == nil {
		return nil, pe, false
	}
	if err := json.Unmarshal(entry.Value, &pe); err != nil {
		c.logger.Warn(ctx, "discarding undecodable envelope", observe.F("document", id.LID), observe.F("error", err))
		return nil, pe, false
	}
	c.logger.Debug(ctx, "restored envelope", observe.F("document", id.LID))
	return entry, pe, true
}

var _ Cache = (*MemoryCache)(nil)
