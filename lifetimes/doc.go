// Package lifetimes provides lifetime policies for a store.
//
// TTL marks cached envelopes stale once they are older than a configured
// time-to-live, when a request asks to reload, or when the cached envelope
// records a failed request. It also tracks which documents have a request in
// flight.
//
// Func adapts a plain staleness function.
package lifetimes
