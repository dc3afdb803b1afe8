package handler

import (
	"maps"
	"slices"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
)

// Document is a normalized document whose references were replaced by the
// cache's live records.
type Document struct {
	Identifier *identifier.DocumentIdentifier

	// Record is set for single-resource documents. It is nil for null data.
	Record *cache.Record

	// Records is set, in order, for collection documents.
	Records []*cache.Record
	List    bool

	Included []request.Ref
	Links    map[string]string
	Meta     map[string]any
}

// IsNull reports whether the document has no primary data.
func (d *Document) IsNull() bool {
	return d == nil || (!d.List && d.Record == nil)
}

// Hydrate resolves the references of doc against c. Every reference maps to
// exactly one entry; a reference the cache cannot resolve hydrates to nil.
// doc is not modified.
func Hydrate(c cache.Cache, doc *cache.ResourceDocument) *Document {
	if doc == nil {
		return nil
	}

	out := &Document{
		Identifier: doc.Identifier,
		Included:   slices.Clone(doc.Included),
		Links:      maps.Clone(doc.Links),
		Meta:       maps.Clone(doc.Meta),
	}

	switch {
	case doc.Data.List:
		out.List = true
		out.Records = make([]*cache.Record, len(doc.Data.Many))
		for i, ref := range doc.Data.Many {
			out.Records[i] = c.Peek(ref)
		}
	case doc.Data.One != nil:
		out.Record = c.Peek(*doc.Data.One)
	}
	return out
}
