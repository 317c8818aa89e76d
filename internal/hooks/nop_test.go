package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/types"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnSubscriptionOpened)
	require.NotNil(t, hooks.OnSubscriptionClosed)
	require.NotNil(t, hooks.OnError)
	require.NotNil(t, hooks.OnSplit)

	require.NotPanics(t, func() {
		hooks.OnSubscriptionOpened("tasks:list:{}")
		hooks.OnSubscriptionClosed("tasks:list:{}")
		hooks.OnError("tasks:list:{}", errors.New("boom"))
		hooks.OnSplit("tasks:list", "01J")
	})
}

func TestComplete(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		h := Complete(nil)
		require.NotNil(t, h.OnError)
	})

	t.Run("keeps custom callbacks", func(t *testing.T) {
		var opened []types.Identity
		h := Complete(&types.Hooks{
			OnSubscriptionOpened: func(id types.Identity) { opened = append(opened, id) },
		})

		h.OnSubscriptionOpened("a")
		h.OnSubscriptionClosed("a")
		require.Equal(t, []types.Identity{"a"}, opened)
		require.NotNil(t, h.OnSplit)
	})

	t.Run("does not modify input", func(t *testing.T) {
		in := &types.Hooks{}
		_ = Complete(in)
		require.Nil(t, in.OnError)
	})
}
