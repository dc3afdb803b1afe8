package handler

import (
	"sync"

	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// Context carries one request through the handler. Store may be nil, in which
// case the request bypasses the cache.
type Context struct {
	Request *request.Request
	Store   *store.Store

	mu       sync.Mutex
	response *request.Response
}

// NewContext creates a Context for req against s.
func NewContext(req *request.Request, s *store.Store) *Context {
	return &Context{Request: req, Store: s}
}

// SetResponse records the response metadata of the request. It is set on
// cache hits as well as after a fetch.
func (c *Context) SetResponse(resp *request.Response) {
	if resp == nil {
		return
	}
	c.mu.Lock()
	c.response = resp
	c.mu.Unlock()
}

// Response returns the recorded response metadata, or nil.
func (c *Context) Response() *request.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response
}
