package request

import (
	"errors"
	"fmt"
	"maps"
)

// Builder errors.
var (
	// ErrMissingType indicates a builder was called without a resource type.
	ErrMissingType = errors.New("request: resource type is required")

	// ErrMissingID indicates a builder was called without an id or lid.
	ErrMissingID = errors.New("request: record id is required")

	// ErrMissingQuery indicates a query builder was called with a nil query.
	ErrMissingQuery = errors.New("request: query is required")
)

// ErrTransport is wrapped by structured errors that a transport produced
// without a more specific cause.
var ErrTransport = errors.New("request: transport failed")

// StructuredError is the failure half of the transport contract.
//
// Content holds the error payload. Callers of the cache handler may receive a
// clone whose Content was replaced by a cache-normalized error document; the
// original transport error is never modified.
type StructuredError struct {
	Request  *Request
	Response *Response
	Content  any
	Err      error
}

func (e *StructuredError) Error() string {
	status := 0
	if e.Response != nil {
		status = e.Response.Status
	}
	op := Op("")
	if e.Request != nil {
		op = e.Request.Op
	}
	if e.Err != nil {
		return fmt.Sprintf("request %s failed (status %d): %v", op, status, e.Err)
	}
	return fmt.Sprintf("request %s failed (status %d)", op, status)
}

func (e *StructuredError) Unwrap() error {
	return e.Err
}

// Status returns the response status, or 0 when there was no response.
func (e *StructuredError) Status() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// Clone returns a shallow copy whose Content can be replaced without
// affecting the receiver.
func (e *StructuredError) Clone() *StructuredError {
	c := *e
	if e.Response != nil {
		resp := *e.Response
		resp.Headers = maps.Clone(e.Response.Headers)
		c.Response = &resp
	}
	return &c
}

// AsStructuredError returns err as a *StructuredError. Errors of any other
// type are wrapped with req attached and the original kept as Err.
func AsStructuredError(err error, req *Request) *StructuredError {
	if err == nil {
		return nil
	}
	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}
	return &StructuredError{Request: req, Err: err}
}

// ExtractErrors returns the per-field errors carried by an error payload.
// Only an object with an ordered "errors" sequence qualifies; anything else
// yields nil. Items that are not objects become zero APIErrors so positions
// line up with the payload.
func ExtractErrors(content any) []APIError {
	switch c := content.(type) {
	case *Payload:
		if c == nil || c.Errors == nil {
			return nil
		}
		return c.Errors
	case Payload:
		return c.Errors
	case map[string]any:
		raw, ok := c["errors"]
		if !ok {
			return nil
		}
		switch list := raw.(type) {
		case []APIError:
			return list
		case []any:
			out := make([]APIError, 0, len(list))
			for _, item := range list {
				m, _ := item.(map[string]any)
				out = append(out, apiErrorFromMap(m))
			}
			return out
		}
	}
	return nil
}

func apiErrorFromMap(m map[string]any) APIError {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	e := APIError{
		ID:     str("id"),
		Status: str("status"),
		Code:   str("code"),
		Title:  str("title"),
		Detail: str("detail"),
	}
	if src, ok := m["source"].(map[string]any); ok {
		p, _ := src["pointer"].(string)
		q, _ := src["parameter"].(string)
		e.Source = &ErrorSource{Pointer: p, Parameter: q}
	}
	if meta, ok := m["meta"].(map[string]any); ok {
		e.Meta = meta
	}
	return e
}
