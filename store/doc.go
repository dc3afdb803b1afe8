// Package store bundles the collaborators a cache handler works against: the
// cache, the document identifier resolver and an optional lifetime policy.
//
// A Store also provides the atomic cache-mutation scope. Join runs a batch of
// cache writes under exclusive access; Read runs cache reads under shared
// access. A reader never observes a response that is only partly applied.
//
// Lifetimes is optional. A Store without one serves cached envelopes until
// a request explicitly reloads them.
package store
