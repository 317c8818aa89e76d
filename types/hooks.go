package types

// Hooks defines callbacks for subscription lifecycle events.
//
// All hooks are optional. They are invoked synchronously on the goroutine that
// caused the event (a Track/Untrack caller or a transport delivery goroutine)
// and must therefore return quickly and must not block.
//
// Example:
//
//	hooks := &livesub.Hooks{
//	    OnSubscriptionOpened: func(id livesub.Identity) {
//	        log.Printf("subscribed %s", id)
//	    },
//	}
type Hooks struct {
	// OnSubscriptionOpened is called after a backend subscription is opened for id.
	OnSubscriptionOpened func(id Identity)

	// OnSubscriptionClosed is called after the last listener of id was removed.
	OnSubscriptionClosed func(id Identity)

	// OnError is called when a backend error is fanned out for id.
	OnError func(id Identity, err error)

	// OnSplit is called when a pagination session splits a page at splitCursor.
	OnSplit func(query string, splitCursor Cursor)
}
