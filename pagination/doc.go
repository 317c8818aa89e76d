// Package pagination implements cursor-pinned, split-aware paginated live queries.
//
// A Session keeps an ordered list of pages. Every page is its own live
// subscription, tracked through a types.Tracker (normally a livesub.Multiplexer),
// covering the backend range after its start cursor up to its end cursor.
// Concatenating the pages in list order yields the result set without gaps or
// duplicates, provided the backend honours the cursor contract:
//
//   - a page request is {cursor, numItems, endCursor} under the
//     "paginationOpts" argument
//   - a result is {page, isDone, continueCursor} or, when the range grew too
//     large, a split directive {splitCursor, continueCursor}
//
// On a split directive the page is replaced in place by two pages covering
// (cursor, splitCursor] and (splitCursor, continueCursor], whose union is the
// original range. Results of the two successors may arrive in either order.
//
// Session lifecycle:
//
//	Uninitialized → LoadingFirstPage → Ready ⇄ LoadingMore ⇄ Splitting → Disposed
//
// Pause suspends a session without dropping its pages; Resume re-subscribes them.
package pagination
