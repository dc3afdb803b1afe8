package handler

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// fakeTransport tracks calls and answers with respond.
type fakeTransport struct {
	calls   atomic.Int32
	respond func(ctx context.Context, req *request.Request) (*request.StructuredDocument, error)
}

func (f *fakeTransport) next(ctx context.Context, req *request.Request) (*request.StructuredDocument, error) {
	f.calls.Add(1)
	return f.respond(ctx, req)
}

func (f *fakeTransport) count() int {
	return int(f.calls.Load())
}

func respondWith(status int, content *request.Payload) func(context.Context, *request.Request) (*request.StructuredDocument, error) {
	return func(_ context.Context, req *request.Request) (*request.StructuredDocument, error) {
		return &request.StructuredDocument{
			Request:  req,
			Response: &request.Response{Status: status},
			Content:  content,
		}, nil
	}
}

func failWith(err error) func(context.Context, *request.Request) (*request.StructuredDocument, error) {
	return func(context.Context, *request.Request) (*request.StructuredDocument, error) {
		return nil, err
	}
}

func post(id, title string) request.Resource {
	return request.Resource{Type: "post", ID: id, Attributes: map[string]any{"title": title}}
}

func postPayload(id, title string) *request.Payload {
	return &request.Payload{Data: request.Single(post(id, title))}
}

func okTransport(content *request.Payload) *fakeTransport {
	return &fakeTransport{respond: respondWith(http.StatusOK, content)}
}

// spyCache counts calls into a MemoryCache.
type spyCache struct {
	*cache.MemoryCache

	mu           sync.Mutex
	peeks        int
	puts         int
	putErrors    int
	willCommits  int
	didCommits   int
	rejections   int
	rejectedRef  request.Ref
	rejectedErrs []request.APIError
	lastErrorDoc *cache.ErrorDocument
}

func newSpyCache() *spyCache {
	return &spyCache{MemoryCache: cache.NewMemoryCache(nil)}
}

func (c *spyCache) PeekRequest(id *identifier.DocumentIdentifier) *cache.Envelope {
	c.mu.Lock()
	c.peeks++
	c.mu.Unlock()
	return c.MemoryCache.PeekRequest(id)
}

func (c *spyCache) Put(doc *request.StructuredDocument) *cache.ResourceDocument {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.MemoryCache.Put(doc)
}

func (c *spyCache) PutError(se *request.StructuredError) *cache.ErrorDocument {
	ed := c.MemoryCache.PutError(se)
	c.mu.Lock()
	c.putErrors++
	c.lastErrorDoc = ed
	c.mu.Unlock()
	return ed
}

func (c *spyCache) WillCommit(ref request.Ref, req *request.Request) {
	c.mu.Lock()
	c.willCommits++
	c.mu.Unlock()
	c.MemoryCache.WillCommit(ref, req)
}

func (c *spyCache) DidCommit(ref request.Ref, doc *request.StructuredDocument) *cache.ResourceDocument {
	c.mu.Lock()
	c.didCommits++
	c.mu.Unlock()
	return c.MemoryCache.DidCommit(ref, doc)
}

func (c *spyCache) CommitWasRejected(ref request.Ref, errs []request.APIError) {
	c.mu.Lock()
	c.rejections++
	c.rejectedRef = ref
	c.rejectedErrs = errs
	c.mu.Unlock()
	c.MemoryCache.CommitWasRejected(ref, errs)
}

func (c *spyCache) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts + c.putErrors + c.willCommits + c.didCommits + c.rejections
}

// recordingLifetimes records hook calls in order.
type recordingLifetimes struct {
	mu     sync.Mutex
	stale  bool
	events []string
}

func (l *recordingLifetimes) record(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *recordingLifetimes) ShouldBeStale(*request.Request, *cache.Envelope) bool {
	l.record("stale")
	return l.stale
}

func (l *recordingLifetimes) WillRequest(*request.Request, *identifier.DocumentIdentifier, *store.Store) {
	l.record("will")
}

func (l *recordingLifetimes) DidRequest(*request.Request, *request.Response, *identifier.DocumentIdentifier, *store.Store) {
	l.record("did")
}

func (l *recordingLifetimes) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newTestStore(opts ...store.Option) (*store.Store, *spyCache) {
	c := newSpyCache()
	return store.New(c, opts...), c
}
