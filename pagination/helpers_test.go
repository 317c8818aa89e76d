package pagination

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub"
	livesubtest "github.com/arloliu/livesub/testing"
	"github.com/arloliu/livesub/types"
)

var listQuery = types.QueryRef("tasks:list")

// table is an ordered set of ids answering page requests the way the
// backend does: pages cover ids in (cursor, endCursor], an unbounded page is
// pinned to its first not-done continue cursor, and bounded ranges larger
// than splitAbove are answered with a split directive.
type table struct {
	mu         sync.Mutex
	ids        []string
	splitAbove int
	pins       map[*livesubtest.FakeSubscription]types.Cursor
}

func newTable(n int) *table {
	t := &table{pins: make(map[*livesubtest.FakeSubscription]types.Cursor)}
	for i := 1; i <= n; i++ {
		t.ids = append(t.ids, fmt.Sprintf("a%03d", i*10))
	}

	return t
}

func (t *table) insert(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ids = append(t.ids, ids...)
	sort.Strings(t.ids)
}

func (t *table) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.ids)
}

func (t *table) answer(sub *livesubtest.FakeSubscription) types.PaginationResult {
	opts, ok := sub.PaginationOptions()
	if !ok {
		panic("subscription without pagination options")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	end := opts.EndCursor
	if end.IsZero() {
		end = t.pins[sub]
	}

	start := sort.Search(len(t.ids), func(i int) bool { return opts.Cursor.IsZero() || t.ids[i] > string(opts.Cursor) })

	var stop int
	if end.IsZero() {
		stop = min(start+opts.NumItems, len(t.ids))
	} else {
		stop = sort.Search(len(t.ids), func(i int) bool { return t.ids[i] > string(end) })
		if t.splitAbove > 0 && stop-start > t.splitAbove {
			mid := start + (stop-start)/2 - 1
			return types.PaginationResult{SplitCursor: types.Cursor(t.ids[mid]), ContinueCursor: end}
		}
	}

	res := types.PaginationResult{Page: []json.RawMessage{}, IsDone: stop >= len(t.ids)}
	for _, id := range t.ids[start:stop] {
		raw, _ := json.Marshal(id)
		res.Page = append(res.Page, raw)
	}

	switch {
	case !end.IsZero():
		res.ContinueCursor = end
	case stop > start:
		res.ContinueCursor = types.Cursor(t.ids[stop-1])
	default:
		res.ContinueCursor = opts.Cursor
	}

	if opts.EndCursor.IsZero() && t.pins[sub].IsZero() && !res.IsDone {
		t.pins[sub] = res.ContinueCursor
	}

	return res
}

// autoAnswer makes every new subscription resolve synchronously.
func (t *table) autoAnswer(client *livesubtest.FakeClient) {
	client.OnSubscribe(func(sub *livesubtest.FakeSubscription) {
		sub.PushPage(t.answer(sub))
	})
}

// reevaluate pushes a fresh answer to every live subscription, as the backend
// does after a write.
func (t *table) reevaluate(client *livesubtest.FakeClient) {
	for _, sub := range client.Live(listQuery.Name) {
		sub.PushPage(t.answer(sub))
	}
}

func newHarness(t *testing.T, pageSize int) (*Session, *livesubtest.FakeClient) {
	t.Helper()

	client := livesubtest.NewFakeClient()
	mux, err := livesub.NewMultiplexer(client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mux.Close() })

	s, err := NewSession(mux, listQuery, nil, Options{
		PageSize: pageSize,
		Logger:   livesubtest.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(s.Dispose)

	return s, client
}

func decodeIDs(t *testing.T, items []json.RawMessage) []string {
	t.Helper()

	out := make([]string, 0, len(items))
	for _, raw := range items {
		var id string
		require.NoError(t, json.Unmarshal(raw, &id))
		out = append(out, id)
	}

	return out
}

func pageSizes(pages []PageView) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = len(p.Items)
	}

	return out
}

// findSub returns the live subscription requesting (cursor, end].
func findSub(t *testing.T, client *livesubtest.FakeClient, cursor, end types.Cursor) *livesubtest.FakeSubscription {
	t.Helper()

	for _, sub := range client.Live(listQuery.Name) {
		opts, ok := sub.PaginationOptions()
		if ok && opts.Cursor == cursor && opts.EndCursor == end {
			return sub
		}
	}
	t.Fatalf("no live subscription for (%q, %q]", cursor, end)

	return nil
}

// stubTracker records listeners and never drops deliveries, so tests can
// deliver results to pages that were already untracked.
type stubTracker struct {
	mu        sync.Mutex
	tracked   []*types.Listener
	untracked []*types.Listener
	args      []types.Args
	trackErr  error
}

func (s *stubTracker) Track(_ types.FunctionReference, args types.Args, l *types.Listener) (types.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackErr != nil {
		return nil, s.trackErr
	}
	s.tracked = append(s.tracked, l)
	s.args = append(s.args, args)

	return func() {}, nil
}

func (s *stubTracker) Untrack(_ types.FunctionReference, _ types.Args, l *types.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.untracked = append(s.untracked, l)
}

func (s *stubTracker) listener(i int) *types.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tracked[i]
}

func pageResult(t *testing.T, res types.PaginationResult) types.Result {
	t.Helper()

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	return types.Result{Data: raw}
}

func rawItems(ids ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		out[i], _ = json.Marshal(id)
	}

	return out
}
