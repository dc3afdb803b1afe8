package lifetimes_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/handler"
	"github.com/jonwraymond/docstore/lifetimes"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

func ExampleTTL() {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	policy := lifetimes.NewTTL(lifetimes.Config{DefaultTTL: time.Minute}, lifetimes.WithClock(clock))
	s := store.NewMemory([]cache.Option{cache.WithClock(clock)}, store.WithLifetimes(policy))

	calls := 0
	transport := func(_ context.Context, req *request.Request) (*request.StructuredDocument, error) {
		calls++
		return &request.StructuredDocument{
			Request:  req,
			Response: &request.Response{Status: http.StatusOK},
			Content:  &request.Payload{Data: request.Single(request.Resource{Type: "post", ID: "1"})},
		}, nil
	}
	m := handler.NewManager(s, transport)

	req, _ := request.FindRecord("post", "1", request.FindRecordOptions{})
	ctx := context.Background()

	_, _ = m.Request(ctx, req)
	_, _ = m.Request(ctx, req)
	fmt.Println("within ttl:", calls)

	now = now.Add(2 * time.Minute)
	_, _ = m.Request(ctx, req)
	fmt.Println("after ttl:", calls)
	// Output:
	// within ttl: 1
	// after ttl: 2
}
