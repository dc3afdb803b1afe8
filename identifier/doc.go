// Package identifier resolves stable cache keys for requests and records.
//
// Document identifiers key cached responses. Two requests with the same
// cacheable shape (operation, target, query and cache-relevant options)
// resolve to the same *DocumentIdentifier; mutations and requests that skip
// the cache resolve to nil.
//
// Record identifiers give every record reference a stable lid, including
// records created locally that do not have a server id yet.
package identifier
