package binding

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub"
	"github.com/arloliu/livesub/reactive"
	livesubtest "github.com/arloliu/livesub/testing"
	"github.com/arloliu/livesub/types"
)

var (
	byIDQuery  = types.QueryRef("tasks:byId")
	listQuery  = types.QueryRef("tasks:list")
	createTask = types.MutationRef("tasks:create")
)

type task struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

func newEnv(t *testing.T) (*reactive.Runtime, *livesub.Multiplexer, *livesubtest.FakeClient) {
	t.Helper()

	client := livesubtest.NewFakeClient()
	mux, err := livesub.NewMultiplexer(client, livesub.WithLogger(livesubtest.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mux.Close() })

	return reactive.New(), mux, client
}

// serveList answers every paginated subscription of client from ids, using
// the (cursor, endCursor] page contract.
func serveList(client *livesubtest.FakeClient, ids []string) {
	client.OnSubscribe(func(sub *livesubtest.FakeSubscription) {
		if _, ok := sub.PaginationOptions(); ok {
			sub.PushPage(answerList(sub, ids))
		}
	})
}

func answerList(sub *livesubtest.FakeSubscription, ids []string) types.PaginationResult {
	opts, _ := sub.PaginationOptions()

	start := sort.Search(len(ids), func(i int) bool { return opts.Cursor.IsZero() || ids[i] > string(opts.Cursor) })
	stop := min(start+opts.NumItems, len(ids))
	if !opts.EndCursor.IsZero() {
		stop = sort.Search(len(ids), func(i int) bool { return ids[i] > string(opts.EndCursor) })
	}

	res := types.PaginationResult{Page: []json.RawMessage{}, IsDone: stop >= len(ids)}
	for _, id := range ids[start:stop] {
		raw, _ := json.Marshal(id)
		res.Page = append(res.Page, raw)
	}
	switch {
	case !opts.EndCursor.IsZero():
		res.ContinueCursor = opts.EndCursor
	case stop > start:
		res.ContinueCursor = types.Cursor(ids[stop-1])
	default:
		res.ContinueCursor = opts.Cursor
	}

	return res
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%03d", i+1)
	}

	return ids
}
