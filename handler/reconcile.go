package handler

import (
	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/request"
)

// reconcileSuccess applies a successful response to c. It must run inside
// the store's atomic scope.
func reconcileSuccess(c cache.Cache, req *request.Request, doc *request.StructuredDocument) *cache.ResourceDocument {
	switch req.Kind() {
	case request.KindMutation:
		if ref, ok := req.Record(); ok {
			return c.DidCommit(ref, doc)
		}
		if request.IsCacheAffecting(doc) {
			return c.Put(doc)
		}
		return nil
	default:
		return c.Put(doc)
	}
}

// reconcileError applies a failed response to c. Mutations mark their record
// rejected and produce no document. It must run inside the store's atomic
// scope.
func reconcileError(c cache.Cache, req *request.Request, se *request.StructuredError) *cache.ErrorDocument {
	switch req.Kind() {
	case request.KindMutation:
		if ref, ok := req.Record(); ok {
			c.CommitWasRejected(ref, request.ExtractErrors(se.Content))
		}
		return nil
	default:
		return c.PutError(se)
	}
}
