package pagination

import (
	"encoding/json"

	"github.com/arloliu/livesub/types"
)

// requestReason labels page requests in metrics.
type requestReason string

const (
	reasonInitial  requestReason = "initial"
	reasonLoadMore requestReason = "load_more"
	reasonSplit    requestReason = "split"
	reasonResume   requestReason = "resume"
	reasonRetry    requestReason = "retry"
)

// page is one subscribed range of the result set.
type page struct {
	key    uint64
	reason requestReason

	// cursor and endCursor are the bounds of the current request; args is the
	// request and listener the registration, both needed to untrack.
	cursor    types.Cursor
	endCursor types.Cursor
	args      types.Args
	listener  *types.Listener

	// pinnedEnd is the continue cursor the page reported when a later page was
	// appended after it. Re-subscriptions use it as the end bound.
	pinnedEnd types.Cursor

	items   []json.RawMessage
	loading bool
	loaded  bool
	err     error

	// retired pages were split, disposed or paused away; their results are ignored.
	retired bool
}

// PageView is a read-only snapshot of a page.
type PageView struct {
	Key       uint64
	Cursor    types.Cursor
	EndCursor types.Cursor
	Items     []json.RawMessage
	Loading   bool
	Err       error
}

func (p *page) view() PageView {
	end := p.endCursor
	if end.IsZero() {
		end = p.pinnedEnd
	}

	return PageView{
		Key:       p.key,
		Cursor:    p.cursor,
		EndCursor: end,
		Items:     append([]json.RawMessage(nil), p.items...),
		Loading:   p.loading,
		Err:       p.err,
	}
}

// requestEnd returns the end bound to use when (re-)subscribing the page.
func (p *page) requestEnd() types.Cursor {
	if !p.endCursor.IsZero() {
		return p.endCursor
	}

	return p.pinnedEnd
}
