// Package handler implements the cache handler: the request lifecycle that
// decides whether a request is served from the cache or fetched, applies
// the response to the cache and hydrates the result into live records.
//
// A request moves through four phases. Routing resolves its document
// identifier and cached envelope, and asks the freshness rules whether to
// fetch. CacheHit serves the envelope directly. FetchPending announces
// mutations to the cache and calls the transport. Reconciling applies the
// response (or error) to the cache inside the store's atomic scope, then
// hydrates it.
//
// Requests without a store, or with SkipCache set, bypass all of this and go
// straight to the transport.
//
// Errors:
//   - ErrMissingEnvelope and ErrMissingRecord are precondition faults.
//   - Transport errors are returned as *request.StructuredError. For reads the
//     returned error is a clone whose Content is the cached *cache.ErrorDocument.
//     Mutations and aborted requests return the transport error unchanged.
package handler
