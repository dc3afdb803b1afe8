package resilience

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/jonwraymond/docstore/request"
)

// mockTransport tracks calls and returns configured results.
type mockTransport struct {
	calls atomic.Int32
	err   error
}

func (m *mockTransport) next(_ context.Context, req *request.Request) (*request.StructuredDocument, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &request.StructuredDocument{Request: req, Response: &request.Response{Status: http.StatusOK}}, nil
}

func statusError(status int) error {
	return &request.StructuredError{Response: &request.Response{Status: status}, Err: request.ErrTransport}
}

func testRequest() *request.Request {
	req, _ := request.FindRecord("post", "1", request.FindRecordOptions{})
	return req
}
