// Package reactive provides a headless implementation of types.ReactiveRuntime.
//
// The runtime drives the binding adapters outside a UI framework: effects are
// re-run when a signal they read is written, cleanups run before each re-run
// and when the effect stops. A single flusher drains a FIFO queue of dirty
// effects; writes from other goroutines while a flush is running are picked up
// by that flush.
//
// Basic usage:
//
//	rt := reactive.New()
//	count := reactive.NewCell(rt, 0)
//
//	stop := rt.Effect(func(scope types.EffectScope) {
//	    fmt.Println("count is", count.Get())
//	})
//	defer stop()
//
//	count.Set(1) // prints "count is 1"
package reactive
