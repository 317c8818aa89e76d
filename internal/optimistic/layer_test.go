package optimistic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/types"
)

var countQuery = types.QueryRef("tasks:count")

type recorder struct {
	results []types.Result
}

func (r *recorder) deliver(res types.Result) { r.results = append(r.results, res) }

func (r *recorder) values() []string {
	out := make([]string, 0, len(r.results))
	for _, res := range r.results {
		if res.Err != nil {
			out = append(out, "err:"+res.Err.Error())
			continue
		}
		out = append(out, string(res.Data))
	}

	return out
}

func increment(store types.LocalStore, _ types.Args) {
	raw, ok := store.GetQuery(countQuery, nil)
	if !ok {
		return
	}
	var n int
	_ = json.Unmarshal(raw, &n)
	next, _ := json.Marshal(n + 1)
	store.SetQuery(countQuery, nil, next)
}

func TestLayer_ServerValues(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, nil, rec.deliver)
	require.NoError(t, err)

	e.Server(json.RawMessage("1"))
	e.Server(json.RawMessage("1"))
	e.Server(json.RawMessage("2"))
	e.ServerError(errors.New("boom"))
	e.Server(json.RawMessage("2"))

	require.Equal(t, []string{"1", "2", "err:boom", "2"}, rec.values())
}

func TestLayer_ApplyAndSettle(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, types.Args{}, rec.deliver)
	require.NoError(t, err)
	e.Server(json.RawMessage("1"))

	m := l.Apply(increment, nil)
	require.Equal(t, []string{"1", "2"}, rec.values(), "optimistic value is delivered immediately")

	// Settled without a newer server result: the override stays until the next push.
	l.Settle(m)
	require.Equal(t, []string{"1", "2"}, rec.values())

	e.Server(json.RawMessage("2"))
	require.Equal(t, []string{"1", "2"}, rec.values(), "confirmed value equals the optimistic one")

	e.Server(json.RawMessage("5"))
	require.Equal(t, []string{"1", "2", "5"}, rec.values())
}

func TestLayer_SettleAfterServerPush(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, nil, rec.deliver)
	require.NoError(t, err)
	e.Server(json.RawMessage("1"))

	m := l.Apply(increment, nil)
	e.Server(json.RawMessage("3"))
	require.Equal(t, []string{"1", "2"}, rec.values(), "unsettled override hides the server value")

	l.Settle(m)
	require.Equal(t, []string{"1", "2", "3"}, rec.values())
}

func TestLayer_Rollback(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, nil, rec.deliver)
	require.NoError(t, err)
	e.Server(json.RawMessage("1"))

	m := l.Apply(increment, nil)
	l.Rollback(m)

	require.Equal(t, []string{"1", "2", "1"}, rec.values())
}

func TestLayer_StackedMutations(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, nil, rec.deliver)
	require.NoError(t, err)
	e.Server(json.RawMessage("1"))

	first := l.Apply(increment, nil)
	second := l.Apply(increment, nil)
	require.Equal(t, []string{"1", "2", "3"}, rec.values())

	l.Rollback(first)
	require.Equal(t, []string{"1", "2", "3"}, rec.values(), "the later override stays visible")

	l.Rollback(second)
	require.Equal(t, []string{"1", "2", "3", "1"}, rec.values())
}

func TestLayer_UnsubscribedQueriesAreIgnored(t *testing.T) {
	l := New(nil)
	touched := false
	m := l.Apply(func(store types.LocalStore, _ types.Args) {
		_, ok := store.GetQuery(countQuery, nil)
		require.False(t, ok)
		store.SetQuery(countQuery, nil, json.RawMessage("9"))
		touched = true
	}, nil)
	require.True(t, touched)
	l.Settle(m)
}

func TestEntry_Close(t *testing.T) {
	l := New(nil)
	rec := &recorder{}
	e, err := l.Register(countQuery, nil, rec.deliver)
	require.NoError(t, err)

	e.Close()
	e.Close()
	e.Server(json.RawMessage("1"))
	require.Empty(t, rec.results)
	require.Empty(t, l.entries)
}

func TestLayer_RegisterInvalidArgs(t *testing.T) {
	l := New(nil)
	_, err := l.Register(countQuery, types.Args{"f": func() {}}, func(types.Result) {})
	require.ErrorIs(t, err, types.ErrInvalidArgs)
}
