package binding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/reactive"
	"github.com/arloliu/livesub/types"
)

func TestNewPaginatedQuery_Validation(t *testing.T) {
	rt, mux, _ := newEnv(t)

	_, err := NewPaginatedQuery[string](nil, mux, listQuery, nil, PaginatedOptions{})
	require.ErrorIs(t, err, types.ErrRuntimeRequired)

	_, err = NewPaginatedQuery[string](rt, nil, listQuery, nil, PaginatedOptions{})
	require.ErrorIs(t, err, types.ErrTrackerRequired)

	_, err = NewPaginatedQuery[string](rt, mux, createTask, nil, PaginatedOptions{})
	require.ErrorIs(t, err, types.ErrInvalidFunctionReference)

	_, err = NewPaginatedQuery[string](rt, mux, listQuery, nil, PaginatedOptions{PageSize: -3})
	require.ErrorIs(t, err, types.ErrInvalidPageSize)
}

func TestPaginatedQuery_StatusProgression(t *testing.T) {
	rt, mux, client := newEnv(t)
	ids := makeIDs(25)

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, nil, PaginatedOptions{PageSize: 10})
	require.NoError(t, err)
	defer q.Close()

	require.Equal(t, types.PaginationLoadingFirstPage, q.Status())
	require.True(t, q.Loading())
	require.False(t, q.LoadMore())

	first := client.Live(listQuery.Name)[0]
	first.PushPage(answerList(first, ids))
	require.Equal(t, types.PaginationCanLoadMore, q.Status())
	require.Equal(t, ids[:10], q.Results())

	require.True(t, q.LoadMore())
	require.Equal(t, types.PaginationLoadingMore, q.Status())

	serveList(client, ids)
	second := client.Live(listQuery.Name)[1]
	second.PushPage(answerList(second, ids))
	require.True(t, q.LoadMore())

	require.Equal(t, types.PaginationExhausted, q.Status())
	require.False(t, q.Loading())
	require.Equal(t, ids, q.Results())
	require.False(t, q.LoadMore())
}

func TestPaginatedQuery_ReactiveResults(t *testing.T) {
	rt, mux, client := newEnv(t)
	serveList(client, makeIDs(7))

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, nil, PaginatedOptions{PageSize: 3})
	require.NoError(t, err)
	defer q.Close()

	var lengths []int
	stop := rt.Effect(func(types.EffectScope) {
		lengths = append(lengths, len(q.Results()))
	})
	defer stop()

	for q.LoadMore() {
	}

	require.Equal(t, 7, lengths[len(lengths)-1])
	require.Equal(t, types.PaginationExhausted, q.Status())
}

func TestPaginatedQuery_PageErrorsAreRetryable(t *testing.T) {
	rt, mux, client := newEnv(t)
	ids := makeIDs(15)
	boom := &types.FunctionError{Function: listQuery.Name, Message: "boom"}

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, nil, PaginatedOptions{PageSize: 10})
	require.NoError(t, err)
	defer q.Close()

	client.Live(listQuery.Name)[0].PushError(boom)
	require.ErrorIs(t, q.Err(), boom)
	require.False(t, q.Loading(), "a failed first page is not pending")
	require.Equal(t, types.PaginationCanLoadMore, q.Status())

	require.True(t, q.LoadMore())
	require.Equal(t, types.PaginationLoadingFirstPage, q.Status())
	require.NoError(t, q.Err())

	live := client.Live(listQuery.Name)
	require.Len(t, live, 1)
	live[0].PushPage(answerList(live[0], ids))
	require.Equal(t, ids[:10], q.Results())

	require.True(t, q.LoadMore())
	second := client.Live(listQuery.Name)[1]
	second.PushError(boom)
	require.ErrorIs(t, q.Err(), boom)
	require.False(t, q.Loading(), "a failed page is not pending")
	require.Equal(t, types.PaginationCanLoadMore, q.Status())
	require.Equal(t, ids[:10], q.Results())

	require.True(t, q.LoadMore())
	live = client.Live(listQuery.Name)
	require.Len(t, live, 2)
	live[1].PushPage(answerList(live[1], ids))
	require.NoError(t, q.Err())
	require.Equal(t, types.PaginationExhausted, q.Status())
	require.Equal(t, ids, q.Results())
}

func TestPaginatedQuery_SkipPausesAndResumes(t *testing.T) {
	rt, mux, client := newEnv(t)
	ids := makeIDs(25)
	serveList(client, ids)
	skip := reactive.NewCell(rt, false)

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, func() Params {
		if skip.Get() {
			return Skipped()
		}
		return With(nil)
	}, PaginatedOptions{PageSize: 10})
	require.NoError(t, err)
	defer q.Close()

	require.True(t, q.LoadMore())
	require.Len(t, q.Results(), 20)
	require.Equal(t, 2, client.LiveCount())

	skip.Set(true)
	require.Equal(t, types.PaginationIdle, q.Status())
	require.Empty(t, q.Results())
	require.Equal(t, 0, client.LiveCount())
	require.False(t, q.LoadMore())

	skip.Set(false)
	require.Equal(t, 2, client.LiveCount())
	require.Equal(t, ids[:20], q.Results())
	require.Equal(t, types.PaginationCanLoadMore, q.Status())

	// The first page is re-requested with its end pinned.
	pinned := 0
	for _, sub := range client.Live(listQuery.Name) {
		if opts, _ := sub.PaginationOptions(); opts.EndCursor == types.Cursor(ids[9]) {
			pinned++
		}
	}
	require.Equal(t, 1, pinned)
}

func TestPaginatedQuery_SkippedFromStart(t *testing.T) {
	rt, mux, client := newEnv(t)

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, func() Params { return Skipped() }, PaginatedOptions{})
	require.NoError(t, err)
	defer q.Close()

	require.Equal(t, types.PaginationIdle, q.Status())
	require.Equal(t, 0, client.SubscribeCalls())
	require.NoError(t, q.Err())
}

func TestPaginatedQuery_IdentityChangeRecreatesSession(t *testing.T) {
	rt, mux, client := newEnv(t)
	serveList(client, makeIDs(5))
	owner := reactive.NewCell(rt, "ann")

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, func() Params {
		return With(types.Args{"owner": owner.Get()})
	}, PaginatedOptions{PageSize: 2})
	require.NoError(t, err)
	defer q.Close()

	require.True(t, q.LoadMore())
	require.Len(t, q.Results(), 4)

	owner.Set("bob")
	live := client.Live(listQuery.Name)
	require.Len(t, live, 1, "old pages are disposed, one new first page")
	require.Equal(t, "bob", live[0].Args["owner"])
	require.Len(t, q.Results(), 2)
}

func TestPaginatedQuery_ReservedArgument(t *testing.T) {
	rt, mux, client := newEnv(t)

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, func() Params {
		return With(types.Args{types.PaginationArgKey: "mine"})
	}, PaginatedOptions{})
	require.NoError(t, err)
	defer q.Close()

	require.ErrorIs(t, q.Err(), types.ErrInvalidArgs)
	require.Equal(t, types.PaginationIdle, q.Status())
	require.Equal(t, 0, client.SubscribeCalls())
}

func TestPaginatedQuery_Close(t *testing.T) {
	rt, mux, client := newEnv(t)
	serveList(client, makeIDs(30))

	q, err := NewPaginatedQuery[string](rt, mux, listQuery, nil, PaginatedOptions{PageSize: 10})
	require.NoError(t, err)
	require.True(t, q.LoadMore())
	require.Equal(t, 2, client.LiveCount())

	q.Close()
	q.Close()
	require.Equal(t, 0, client.LiveCount())
	require.Equal(t, types.PaginationIdle, q.Status())
	require.Nil(t, q.Results())
}
