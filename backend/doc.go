// Package backend is an in-memory reactive backend.
//
// A Server holds named query and mutation functions over a document store.
// Queries are live: a subscription is evaluated once when it is opened and
// again after every mutation, and a new result is pushed only when its
// encoding changed. Paginated queries follow the cursor contract the
// pagination engine relies on: a page covers the documents in
// (cursor, endCursor], an unbounded page is pinned to its first continue
// cursor, and a bounded range that grew too large answers with a split
// directive.
//
// The package is meant for tests, demos and as the server side of the NATS
// bridge; Client exposes a Server as a types.LiveQueryClient in-process.
package backend
