// Package request defines request descriptors and the structured documents
// exchanged with a transport.
//
// A Request is an immutable description of one operation: find a record, run
// a query, or commit a mutation. Builders in this package construct
// descriptors; the handler package decides whether they are served from the
// cache or fetched through a NextFunc.
//
// Transports resolve a Request to exactly one of a *StructuredDocument or an
// error. Errors returned by a transport should be *StructuredError values;
// AsStructuredError adapts anything else.
package request
