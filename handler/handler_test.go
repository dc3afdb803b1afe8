package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

func mustFind(t *testing.T, typ, id string, opts request.FindRecordOptions) *request.Request {
	t.Helper()
	req, err := request.FindRecord(typ, id, opts)
	if err != nil {
		t.Fatalf("FindRecord() error = %v", err)
	}
	return req
}

func mustQuery(t *testing.T, query map[string]any) *request.Request {
	t.Helper()
	req, err := request.Query("post", query, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	return req
}

func mustUpdate(t *testing.T, ref request.Ref) *request.Request {
	t.Helper()
	req, err := request.UpdateRecord(ref)
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	return req
}

func TestHandle_FindRecordThenCacheHit(t *testing.T) {
	s, _ := newTestStore()
	transport := okTransport(postPayload("1", "A"))
	h := New()
	ctx := context.Background()

	first, err := h.Handle(ctx, NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), transport.next)
	if err != nil {
		t.Fatalf("first Handle() error = %v", err)
	}
	if transport.count() != 1 {
		t.Fatalf("transport calls = %d, want 1", transport.count())
	}
	rec := first.Document.Record
	if rec == nil {
		t.Fatal("first result has no record")
	}
	if title, _ := rec.Attr("title"); title != "A" {
		t.Errorf("title = %v, want A", title)
	}
	if got := rec.Ref(); got.Type != "post" || got.ID != "1" {
		t.Errorf("record ref = %+v, want post:1", got)
	}

	second, err := h.Handle(ctx, NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), transport.next)
	if err != nil {
		t.Fatalf("second Handle() error = %v", err)
	}
	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1 (served from cache)", transport.count())
	}
	if second.Document.Record != rec {
		t.Error("cache hit returned a different live record")
	}
}

func TestHandle_SkipCacheBypassesCache(t *testing.T) {
	s, spy := newTestStore()
	transport := okTransport(postPayload("1", "A"))
	h := New()

	req := mustFind(t, "post", "1", request.FindRecordOptions{}).Skip()
	for i := range 2 {
		res, err := h.Handle(context.Background(), NewContext(req, s), transport.next)
		if err != nil {
			t.Fatalf("Handle() #%d error = %v", i, err)
		}
		if res.Raw == nil || res.Document != nil {
			t.Errorf("Handle() #%d should return the raw document only", i)
		}
	}

	if transport.count() != 2 {
		t.Errorf("transport calls = %d, want 2", transport.count())
	}
	if spy.peeks != 0 || spy.writes() != 0 {
		t.Errorf("cache touched: peeks=%d writes=%d", spy.peeks, spy.writes())
	}
}

func TestHandle_NoStorePassesThrough(t *testing.T) {
	wantErr := errors.New("offline")
	transport := &fakeTransport{respond: failWith(wantErr)}

	_, err := New().Handle(context.Background(), NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), nil), transport.next)
	if err != wantErr {
		t.Errorf("Handle() error = %v, want the transport error unchanged", err)
	}
	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1", transport.count())
	}
}

func TestHandle_NilRequest(t *testing.T) {
	transport := okTransport(nil)
	if _, err := New().Handle(context.Background(), &Context{}, transport.next); !errors.Is(err, ErrNilRequest) {
		t.Errorf("Handle() error = %v, want ErrNilRequest", err)
	}
	if transport.count() != 0 {
		t.Errorf("transport calls = %d, want 0", transport.count())
	}
}

func TestHandle_QueryRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	transport := okTransport(&request.Payload{
		Data:  request.Collection(post("1", "A"), post("2", "B"), post("3", "C")),
		Links: map[string]string{"next": "/posts?page=2"},
		Meta:  map[string]any{"total": 3},
	})
	h := New()
	ctx := context.Background()

	fetched, err := h.Handle(ctx, NewContext(mustQuery(t, map[string]any{"status": "published"}), s), transport.next)
	if err != nil {
		t.Fatalf("first Handle() error = %v", err)
	}
	cached, err := h.Handle(ctx, NewContext(mustQuery(t, map[string]any{"status": "published"}), s), transport.next)
	if err != nil {
		t.Fatalf("second Handle() error = %v", err)
	}

	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1", transport.count())
	}
	if !fetched.Document.List || !cached.Document.List {
		t.Fatal("query results should be lists")
	}
	if !slices.Equal(fetched.Document.Records, cached.Document.Records) {
		t.Error("cached records differ from fetched records")
	}
	if len(cached.Document.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(cached.Document.Records))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got := cached.Document.Records[i].Ref().ID; got != want {
			t.Errorf("record %d id = %s, want %s", i, got, want)
		}
	}
	if cached.Document.Links["next"] != "/posts?page=2" {
		t.Errorf("links = %v, want next link", cached.Document.Links)
	}
	if cached.Document.Identifier == nil || cached.Document.Identifier != fetched.Document.Identifier {
		t.Error("documents should share one identifier")
	}
}

func TestHandle_ReportsResponseOnCacheHit(t *testing.T) {
	s, _ := newTestStore()
	transport := &fakeTransport{respond: func(_ context.Context, req *request.Request) (*request.StructuredDocument, error) {
		return &request.StructuredDocument{
			Request:  req,
			Response: &request.Response{Status: http.StatusOK, Headers: map[string]string{"etag": "v1"}},
			Content:  postPayload("1", "A"),
		}, nil
	}}
	h := New()

	if _, err := h.Handle(context.Background(), NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), transport.next); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	rc := NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s)
	if _, err := h.Handle(context.Background(), rc, transport.next); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	resp := rc.Response()
	if resp == nil || resp.Status != http.StatusOK || resp.Headers["etag"] != "v1" {
		t.Errorf("Response() = %+v, want cached 200 with etag", resp)
	}
}

func TestHandle_ReloadFetches(t *testing.T) {
	s, _ := newTestStore()
	transport := okTransport(postPayload("1", "A"))
	h := New()
	ctx := context.Background()

	if _, err := h.Handle(ctx, NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), transport.next); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	reload := mustFind(t, "post", "1", request.FindRecordOptions{Reload: true})
	if _, err := h.Handle(ctx, NewContext(reload, s), transport.next); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if transport.count() != 2 {
		t.Errorf("transport calls = %d, want 2", transport.count())
	}
}

func TestHandle_LifetimesConsulted(t *testing.T) {
	tests := []struct {
		name       string
		stale      bool
		wantCalls  int
		wantEvents []string
	}{
		{
			name:       "fresh",
			stale:      false,
			wantCalls:  1,
			wantEvents: []string{"will", "did", "stale"},
		},
		{
			name:       "stale",
			stale:      true,
			wantCalls:  2,
			wantEvents: []string{"will", "did", "stale", "will", "did"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := &recordingLifetimes{stale: tt.stale}
			s, _ := newTestStore(store.WithLifetimes(lt))
			transport := okTransport(postPayload("1", "A"))
			h := New()

			for range 2 {
				if _, err := h.Handle(context.Background(), NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), transport.next); err != nil {
					t.Fatalf("Handle() error = %v", err)
				}
			}

			if transport.count() != tt.wantCalls {
				t.Errorf("transport calls = %d, want %d", transport.count(), tt.wantCalls)
			}
			if got := lt.Events(); !slices.Equal(got, tt.wantEvents) {
				t.Errorf("events = %v, want %v", got, tt.wantEvents)
			}
		})
	}
}

func TestHandle_MutationRejected(t *testing.T) {
	s, spy := newTestStore()
	ref := request.Ref{Type: "post", ID: "1"}
	content := &request.Payload{Errors: []request.APIError{{
		Title:  "Invalid title",
		Source: &request.ErrorSource{Pointer: "/data/attributes/title"},
	}}}
	transportErr := &request.StructuredError{
		Response: &request.Response{Status: http.StatusUnprocessableEntity},
		Content:  content,
		Err:      request.ErrTransport,
	}
	lt := &recordingLifetimes{}
	s.Lifetimes = lt
	transport := &fakeTransport{respond: failWith(transportErr)}

	_, err := New().Handle(context.Background(), NewContext(mustUpdate(t, ref), s), transport.next)

	if err != error(transportErr) {
		t.Fatalf("Handle() error = %v, want the transport error unchanged", err)
	}
	if transportErr.Content != content {
		t.Error("transport error content was modified")
	}
	if spy.willCommits != 1 {
		t.Errorf("WillCommit calls = %d, want 1", spy.willCommits)
	}
	if spy.rejections != 1 {
		t.Errorf("CommitWasRejected calls = %d, want 1", spy.rejections)
	}
	if spy.rejectedRef != ref {
		t.Errorf("rejected ref = %+v, want %+v", spy.rejectedRef, ref)
	}
	if len(spy.rejectedErrs) != 1 || spy.rejectedErrs[0].Title != "Invalid title" {
		t.Errorf("rejected errors = %+v", spy.rejectedErrs)
	}
	if spy.putErrors != 0 {
		t.Errorf("PutError calls = %d, want 0", spy.putErrors)
	}

	rec := s.Cache.Peek(ref)
	if rec == nil {
		t.Fatal("rejected record not found")
	}
	if rec.State() != cache.StateInvalid {
		t.Errorf("record state = %v, want invalid", rec.State())
	}
	// No document identifier for mutations, so DidRequest is not called.
	if got := lt.Events(); !slices.Equal(got, []string{"will"}) {
		t.Errorf("events = %v, want [will]", got)
	}
}

func TestHandle_MutationRejectedWithoutErrors(t *testing.T) {
	s, spy := newTestStore()
	ref := request.Ref{Type: "post", ID: "1"}
	transport := &fakeTransport{respond: failWith(errors.New("connection reset"))}

	_, err := New().Handle(context.Background(), NewContext(mustUpdate(t, ref), s), transport.next)
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("Handle() error = %v, want the transport error", err)
	}
	if spy.rejections != 1 || spy.rejectedErrs != nil {
		t.Errorf("rejections = %d errs = %v, want 1 and nil", spy.rejections, spy.rejectedErrs)
	}
	if got := s.Cache.Peek(ref).State(); got != cache.StateRejected {
		t.Errorf("record state = %v, want rejected", got)
	}
}

func TestHandle_MutationWithoutRecord(t *testing.T) {
	s, spy := newTestStore()
	transport := okTransport(nil)
	req := &request.Request{Op: request.OpUpdateRecord}

	_, err := New().Handle(context.Background(), NewContext(req, s), transport.next)
	if !errors.Is(err, ErrMissingRecord) {
		t.Fatalf("Handle() error = %v, want ErrMissingRecord", err)
	}
	if transport.count() != 0 {
		t.Errorf("transport calls = %d, want 0", transport.count())
	}
	if spy.writes() != 0 {
		t.Errorf("cache writes = %d, want 0", spy.writes())
	}
}

func TestHandle_UpdateNoContent(t *testing.T) {
	s, spy := newTestStore()
	ref := request.Ref{Type: "post", ID: "1"}
	transport := &fakeTransport{respond: respondWith(http.StatusNoContent, nil)}

	res, err := New().Handle(context.Background(), NewContext(mustUpdate(t, ref), s), transport.next)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if spy.didCommits != 1 {
		t.Errorf("DidCommit calls = %d, want 1", spy.didCommits)
	}
	if spy.puts != 0 {
		t.Errorf("Put calls = %d, want 0", spy.puts)
	}
	if res.Document != nil {
		t.Errorf("Document = %+v, want nil", res.Document)
	}
	if got := s.Cache.Peek(ref).State(); got != cache.StateClean {
		t.Errorf("record state = %v, want clean", got)
	}
}

func TestHandle_CreateAssignsID(t *testing.T) {
	mc := cache.NewMemoryCache(nil)
	s := store.New(mc)
	local := mc.CreateRecord("post", map[string]any{"title": "Draft"})

	req, err := request.CreateRecord(local.Ref())
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	transport := &fakeTransport{respond: respondWith(http.StatusCreated, postPayload("9", "Draft"))}

	res, err := New().Handle(context.Background(), NewContext(req, s), transport.next)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Document.Record != local {
		t.Error("created document should hydrate to the local record")
	}
	if got := local.Ref(); got.ID != "9" {
		t.Errorf("id = %q, want 9", got.ID)
	}
	if local.IsNew() {
		t.Error("IsNew() = true after commit")
	}
	if mc.Peek(request.Ref{Type: "post", ID: "9"}) != local {
		t.Error("server id should resolve to the local record")
	}
}

func TestHandle_DeleteMarksDeleted(t *testing.T) {
	s, _ := newTestStore()
	ref := request.Ref{Type: "post", ID: "1"}
	req, err := request.DeleteRecord(ref)
	if err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	transport := &fakeTransport{respond: respondWith(http.StatusNoContent, nil)}

	if _, err := New().Handle(context.Background(), NewContext(req, s), transport.next); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := s.Cache.Peek(ref).State(); got != cache.StateDeleted {
		t.Errorf("record state = %v, want deleted", got)
	}
}

func TestHandle_QueryErrorRewritesContent(t *testing.T) {
	lt := &recordingLifetimes{}
	s, spy := newTestStore(store.WithLifetimes(lt))
	raw := map[string]any{"errors": []any{map[string]any{"title": "Bad Request"}}}
	transportErr := &request.StructuredError{
		Response: &request.Response{Status: http.StatusBadRequest},
		Content:  raw,
		Err:      request.ErrTransport,
	}
	transport := &fakeTransport{respond: failWith(transportErr)}

	_, err := New().Handle(context.Background(), NewContext(mustQuery(t, map[string]any{"status": "draft"}), s), transport.next)

	var se *request.StructuredError
	if !errors.As(err, &se) {
		t.Fatalf("Handle() error = %T, want *request.StructuredError", err)
	}
	if se == transportErr {
		t.Fatal("returned error should be a clone")
	}
	if spy.putErrors != 1 {
		t.Fatalf("PutError calls = %d, want 1", spy.putErrors)
	}
	ed, ok := se.Content.(*cache.ErrorDocument)
	if !ok || ed != spy.lastErrorDoc {
		t.Fatalf("Content = %#v, want the cache's error document", se.Content)
	}
	if len(ed.Errors) != 1 || ed.Errors[0].Title != "Bad Request" {
		t.Errorf("errors = %+v", ed.Errors)
	}
	if _, ok := transportErr.Content.(map[string]any); !ok {
		t.Error("transport error content was modified")
	}
	if !errors.Is(err, request.ErrTransport) {
		t.Error("clone should still wrap the transport cause")
	}
	if got := lt.Events(); !slices.Equal(got, []string{"will", "did"}) {
		t.Errorf("events = %v, want [will did]", got)
	}
}

func TestHandle_CachedErrorServed(t *testing.T) {
	s, _ := newTestStore()
	transport := &fakeTransport{respond: failWith(&request.StructuredError{
		Response: &request.Response{Status: http.StatusNotFound},
		Content:  &request.Payload{Errors: []request.APIError{{Status: "404", Title: "Not Found"}}},
	})}
	h := New()
	ctx := context.Background()

	_, first := h.Handle(ctx, NewContext(mustFind(t, "post", "404", request.FindRecordOptions{}), s), transport.next)
	rc := NewContext(mustFind(t, "post", "404", request.FindRecordOptions{}), s)
	_, second := h.Handle(ctx, rc, transport.next)

	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1", transport.count())
	}
	if !errors.Is(second, ErrCachedFailure) {
		t.Fatalf("second error = %v, want ErrCachedFailure", second)
	}

	var a, b *request.StructuredError
	if !errors.As(first, &a) || !errors.As(second, &b) {
		t.Fatal("both errors should be structured")
	}
	if a.Content != b.Content {
		t.Error("cached error should carry the stored error document")
	}
	if rc.Response() == nil || rc.Response().Status != http.StatusNotFound {
		t.Errorf("Response() = %+v, want 404", rc.Response())
	}
}

func TestHandle_AbortLeavesCacheUntouched(t *testing.T) {
	lt := &recordingLifetimes{}
	s, spy := newTestStore(store.WithLifetimes(lt))
	content := &request.Payload{Errors: []request.APIError{{Title: "aborted"}}}
	transportErr := &request.StructuredError{Content: content, Err: context.Canceled}

	ctx, cancel := context.WithCancel(context.Background())
	transport := &fakeTransport{respond: func(context.Context, *request.Request) (*request.StructuredDocument, error) {
		cancel()
		return nil, transportErr
	}}

	tests := []struct {
		name string
		req  *request.Request
	}{
		{"query", mustQuery(t, map[string]any{"status": "draft"})},
		{"mutation", mustUpdate(t, request.Ref{Type: "post", ID: "1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := spy.writes()
			_, err := New().Handle(ctx, NewContext(tt.req, s), transport.next)
			if err != error(transportErr) {
				t.Fatalf("Handle() error = %v, want the transport error", err)
			}
			if transportErr.Content != content {
				t.Error("content was replaced")
			}
			writes := spy.writes() - before
			if tt.req.Kind() == request.KindMutation {
				// Only the will-commit signal precedes the transport call.
				writes -= 1
			}
			if writes != 0 {
				t.Errorf("cache writes after abort = %d, want 0", writes)
			}
		})
	}

	for _, e := range lt.Events() {
		if e == "did" {
			t.Error("DidRequest called for an aborted request")
		}
	}
}

func TestHandle_Deduplication(t *testing.T) {
	s, _ := newTestStore()
	release := make(chan struct{})
	transport := &fakeTransport{respond: func(_ context.Context, req *request.Request) (*request.StructuredDocument, error) {
		<-release
		return respondWith(http.StatusOK, postPayload("1", "A"))(context.Background(), req)
	}}
	h := New(WithDeduplication())

	const n = 8
	results := make([]*Result, n)
	errs := make([]error, n)
	reqs := make([]*request.Request, n)
	for i := range n {
		reqs[i] = mustFind(t, "post", "1", request.FindRecordOptions{})
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.Handle(context.Background(), NewContext(reqs[i], s), transport.next)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1", transport.count())
	}
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("Handle() #%d error = %v", i, errs[i])
		}
		if results[i].Document.Record != results[0].Document.Record {
			t.Errorf("result #%d hydrated a different record", i)
		}
	}
}

func TestHandle_DeduplicationSurvivesLeaderAbort(t *testing.T) {
	lt := &recordingLifetimes{}
	s, spy := newTestStore(store.WithLifetimes(lt))
	started := make(chan struct{})
	release := make(chan struct{})
	var transportCtxErr error
	transport := &fakeTransport{respond: func(ctx context.Context, req *request.Request) (*request.StructuredDocument, error) {
		close(started)
		<-release
		transportCtxErr = ctx.Err()
		return respondWith(http.StatusOK, postPayload("1", "A"))(ctx, req)
	}}
	h := New(WithDeduplication())

	leaderReq := mustFind(t, "post", "1", request.FindRecordOptions{})
	followerReq := mustFind(t, "post", "1", request.FindRecordOptions{})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := h.Handle(leaderCtx, NewContext(leaderReq, s), transport.next)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		res *Result
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := h.Handle(context.Background(), NewContext(followerReq, s), transport.next)
		follower <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader Handle() error = %v, want context.Canceled", err)
	}
	close(release)

	got := <-follower
	if got.err != nil {
		t.Fatalf("follower Handle() error = %v, want nil", got.err)
	}
	if got.res.Document == nil || got.res.Document.Record == nil {
		t.Fatal("follower got no record")
	}
	if title, _ := got.res.Document.Record.Attr("title"); title != "A" {
		t.Errorf("title = %v, want A", title)
	}
	if transportCtxErr != nil {
		t.Errorf("transport context error = %v, want nil", transportCtxErr)
	}
	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1", transport.count())
	}
	if spy.writes() != 1 {
		t.Errorf("cache writes = %d, want 1", spy.writes())
	}
	if !slices.Contains(lt.Events(), "did") {
		t.Error("DidRequest not called for the follower")
	}
}

func TestShouldFetch(t *testing.T) {
	env := &cache.Envelope{Content: &cache.ResourceDocument{}}

	tests := []struct {
		name      string
		lifetimes store.Lifetimes
		req       func(t *testing.T) *request.Request
		env       *cache.Envelope
		want      bool
	}{
		{
			name: "mutation",
			req:  func(t *testing.T) *request.Request { return mustUpdate(t, request.Ref{Type: "post", ID: "1"}) },
			env:  env,
			want: true,
		},
		{
			name: "skip cache",
			req: func(t *testing.T) *request.Request {
				return mustFind(t, "post", "1", request.FindRecordOptions{}).Skip()
			},
			env:  env,
			want: true,
		},
		{
			name: "reload",
			req: func(t *testing.T) *request.Request {
				return mustFind(t, "post", "1", request.FindRecordOptions{Reload: true})
			},
			env:  env,
			want: true,
		},
		{
			name: "no envelope",
			req:  func(t *testing.T) *request.Request { return mustFind(t, "post", "1", request.FindRecordOptions{}) },
			want: true,
		},
		{
			name: "cached without policy",
			req:  func(t *testing.T) *request.Request { return mustFind(t, "post", "1", request.FindRecordOptions{}) },
			env:  env,
			want: false,
		},
		{
			name:      "policy says stale",
			lifetimes: &recordingLifetimes{stale: true},
			req:       func(t *testing.T) *request.Request { return mustFind(t, "post", "1", request.FindRecordOptions{}) },
			env:       env,
			want:      true,
		},
		{
			name:      "policy says fresh",
			lifetimes: &recordingLifetimes{stale: false},
			req:       func(t *testing.T) *request.Request { return mustFind(t, "post", "1", request.FindRecordOptions{}) },
			env:       env,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemory(nil, store.WithLifetimes(tt.lifetimes))
			if got := shouldFetch(s, tt.req(t), tt.env); got != tt.want {
				t.Errorf("shouldFetch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServeCached_MissingEnvelope(t *testing.T) {
	s := store.NewMemory(nil)
	_, err := New().serveCached(NewContext(mustFind(t, "post", "1", request.FindRecordOptions{}), s), nil)
	if !errors.Is(err, ErrMissingEnvelope) {
		t.Errorf("serveCached() error = %v, want ErrMissingEnvelope", err)
	}
}

func TestReconcileSuccess_CreateWithoutRecord(t *testing.T) {
	req := &request.Request{Op: request.OpCreateRecord}

	tests := []struct {
		name     string
		status   int
		content  *request.Payload
		wantPuts int
	}{
		{"empty 201", http.StatusCreated, nil, 0},
		{"204", http.StatusNoContent, nil, 0},
		{"201 with content", http.StatusCreated, postPayload("7", "New"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := newSpyCache()
			doc := &request.StructuredDocument{
				Request:  req,
				Response: &request.Response{Status: tt.status},
				Content:  tt.content,
			}
			rd := reconcileSuccess(spy, req, doc)
			if spy.puts != tt.wantPuts {
				t.Errorf("Put calls = %d, want %d", spy.puts, tt.wantPuts)
			}
			if (rd != nil) != (tt.wantPuts > 0) {
				t.Errorf("document = %v, want non-nil only when put", rd)
			}
		})
	}
}
