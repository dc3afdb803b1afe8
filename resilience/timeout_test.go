package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/docstore/request"
)

func TestNewTimeout_Defaults(t *testing.T) {
	to := NewTimeout(TimeoutConfig{})
	if to.Config().Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", to.Config().Timeout)
	}
}

func TestTimeout_CompletesInTime(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	transport := &mockTransport{}

	doc, err := to.Wrap(transport.next)(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if doc == nil || doc.Status() != 200 {
		t.Errorf("doc = %+v, want a 200 document", doc)
	}
}

func TestTimeout_Expires(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 10 * time.Millisecond})
	slow := func(ctx context.Context, _ *request.Request) (*request.StructuredDocument, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil, ctx.Err()
	}

	req := testRequest()
	_, err := to.Wrap(slow)(context.Background(), req)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	var se *request.StructuredError
	if !errors.As(err, &se) || se.Request != req {
		t.Error("timeout should carry the request")
	}
}

func TestTimeout_ParentCancelIsNotATimeout(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	blocked := func(ctx context.Context, _ *request.Request) (*request.StructuredDocument, error) {
		cancel()
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil, ctx.Err()
	}

	_, err := to.Wrap(blocked)(ctx, testRequest())
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if IsRejection(err) {
		t.Error("parent cancellation reported as a rejection")
	}
}
