package reactive

import (
	"sync"

	"github.com/arloliu/livesub/types"
)

// Cell is a reactive value. Get registers a dependency of the running effect;
// Set notifies dependents unless the new value equals the old one.
type Cell[T any] struct {
	sig   types.Signal
	equal func(a, b T) bool

	mu    sync.Mutex
	value T
}

// NewCell creates a cell whose writes of an equal value are suppressed.
func NewCell[T comparable](rt types.ReactiveRuntime, initial T) *Cell[T] {
	return NewCellFunc(rt, initial, func(a, b T) bool { return a == b })
}

// NewCellFunc creates a cell with a custom equality. A nil equal makes every
// Set notify dependents.
func NewCellFunc[T any](rt types.ReactiveRuntime, initial T, equal func(a, b T) bool) *Cell[T] {
	return &Cell[T]{sig: rt.NewSignal(), equal: equal, value: initial}
}

// Get returns the value and registers the cell as a dependency.
func (c *Cell[T]) Get() T {
	c.sig.Read()

	return c.Peek()
}

// Peek returns the value without registering a dependency.
func (c *Cell[T]) Peek() T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value
}

// Set stores v and reports whether dependents were notified.
func (c *Cell[T]) Set(v T) bool {
	c.mu.Lock()
	if c.equal != nil && c.equal(c.value, v) {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.mu.Unlock()

	c.sig.Write()

	return true
}

// Update replaces the value with fn applied to it.
func (c *Cell[T]) Update(fn func(T) T) bool {
	return c.Set(fn(c.Peek()))
}
