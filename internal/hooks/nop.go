// Package hooks provides the default lifecycle hook set.
package hooks

import "github.com/arloliu/livesub/types"

// NopHooks implements every lifecycle callback as a no-op.
//
// Components fill unset callbacks from NopHooks so that call sites never need
// nil checks.
type NopHooks struct{}

// Compile-time assertions that NopHooks matches the hook callbacks.
var (
	_ func(types.Identity)        = (*NopHooks)(nil).OnSubscriptionOpened
	_ func(types.Identity)        = (*NopHooks)(nil).OnSubscriptionClosed
	_ func(types.Identity, error) = (*NopHooks)(nil).OnError
	_ func(string, types.Cursor)  = (*NopHooks)(nil).OnSplit
)

// NewNop returns hooks whose callbacks do nothing.
//
// Returns:
//   - *types.Hooks: Hooks with every callback set
func NewNop() *types.Hooks {
	h := &NopHooks{}

	return &types.Hooks{
		OnSubscriptionOpened: h.OnSubscriptionOpened,
		OnSubscriptionClosed: h.OnSubscriptionClosed,
		OnError:              h.OnError,
		OnSplit:              h.OnSplit,
	}
}

// Complete returns a copy of h with every nil callback replaced by a no-op.
// A nil h yields NewNop().
func Complete(h *types.Hooks) *types.Hooks {
	out := NewNop()
	if h == nil {
		return out
	}
	if h.OnSubscriptionOpened != nil {
		out.OnSubscriptionOpened = h.OnSubscriptionOpened
	}
	if h.OnSubscriptionClosed != nil {
		out.OnSubscriptionClosed = h.OnSubscriptionClosed
	}
	if h.OnError != nil {
		out.OnError = h.OnError
	}
	if h.OnSplit != nil {
		out.OnSplit = h.OnSplit
	}

	return out
}

// OnSubscriptionOpened is a no-op implementation.
func (h *NopHooks) OnSubscriptionOpened(_ types.Identity) {}

// OnSubscriptionClosed is a no-op implementation.
func (h *NopHooks) OnSubscriptionClosed(_ types.Identity) {}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ types.Identity, _ error) {}

// OnSplit is a no-op implementation.
func (h *NopHooks) OnSplit(_ string, _ types.Cursor) {}
