package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/types"
)

var (
	countRef = types.QueryRef("items:count")
	addRef   = types.MutationRef("items:add")
)

func newCountingClient(t *testing.T) (*Server, *Client) {
	t.Helper()

	s := newTestServer(t, nil)
	require.NoError(t, s.RegisterQuery(countRef.Name, counterQuery("items")))
	require.NoError(t, s.RegisterMutation(addRef.Name, insertMutation("items")))

	return s, NewClient(s, WithClientLogger(nil), WithClientMetrics(nil))
}

func TestClient_SubscribeAndMutate(t *testing.T) {
	s, c := newCountingClient(t)

	var values []string
	h, err := c.Subscribe(countRef, nil, func(raw json.RawMessage) {
		values = append(values, string(raw))
	}, func(err error) { t.Errorf("unexpected error: %v", err) })
	require.NoError(t, err)

	raw, err := c.Mutate(t.Context(), addRef, types.Args{"title": "a"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.Equal(t, []string{"0", "1"}, values)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	require.Equal(t, 0, s.Subscriptions())
}

func TestClient_ValidatesReferences(t *testing.T) {
	_, c := newCountingClient(t)

	_, err := c.Subscribe(addRef, nil, func(json.RawMessage) {}, func(error) {})
	require.ErrorIs(t, err, types.ErrInvalidFunctionReference)

	_, err = c.Mutate(t.Context(), countRef, nil, nil)
	require.ErrorIs(t, err, types.ErrInvalidFunctionReference)

	_, err = c.Subscribe(types.QueryRef("items:missing"), nil, func(json.RawMessage) {}, func(error) {})
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestClient_OptimisticUpdate(t *testing.T) {
	_, c := newCountingClient(t)

	var values []string
	h, err := c.Subscribe(countRef, nil, func(raw json.RawMessage) {
		values = append(values, string(raw))
	}, func(error) {})
	require.NoError(t, err)
	defer h.Close()

	bump := &types.MutationOptions{OptimisticUpdate: func(store types.LocalStore, _ types.Args) {
		raw, ok := store.GetQuery(countRef, nil)
		require.True(t, ok)
		var n int
		require.NoError(t, json.Unmarshal(raw, &n))
		store.SetQuery(countRef, nil, json.RawMessage("100"))
	}}

	_, err = c.Mutate(t.Context(), addRef, types.Args{}, bump)
	require.NoError(t, err)
	require.Equal(t, []string{"0", "100", "1"}, values, "optimistic value, then the confirmed one")

	_, err = c.Mutate(t.Context(), addRef, types.Args{"fail": true}, bump)
	require.Error(t, err)
	require.Equal(t, []string{"0", "100", "1", "100", "1"}, values, "rolled back after the failure")
}

func TestNormalizeArgs(t *testing.T) {
	type filter struct {
		Owner string `json:"owner"`
		Limit int    `json:"limit"`
	}

	out, err := NormalizeArgs(types.Args{"filter": filter{Owner: "ann", Limit: 3}})
	require.NoError(t, err)
	require.Equal(t, types.Args{"filter": map[string]any{"owner": "ann", "limit": float64(3)}}, out)

	out, err = NormalizeArgs(nil)
	require.NoError(t, err)
	require.Equal(t, types.Args{}, out)

	_, err = NormalizeArgs(types.Args{"ch": make(chan int)})
	require.ErrorIs(t, err, types.ErrInvalidArgs)
}
