// Package cache defines the cache store consumed by the request handler and
// provides an in-memory normalizing implementation.
//
// The cache keeps one live *Record per record identity and one Envelope per
// document identifier. Responses are normalized on the way in: records are
// merged into their live objects, and the stored document references them by
// identity. Envelopes are replaced, never mutated, so a pointer returned by
// PeekRequest stays consistent.
//
// MemoryCache can write envelopes behind to a persist.Store and restore them
// on a later PeekRequest miss. Backend calls never run under the cache lock;
// Flush waits for queued writes.
package cache
