// Package binding adapts live queries, mutations and paginated queries to a
// host reactive runtime.
//
// Bindings declare their subscriptions inside runtime effects and release them
// through effect cleanups, so a binding follows the lifecycle of the component
// that owns it. Argument changes are observed through the params function:
// whatever reactive state it reads becomes a dependency, and the binding
// re-subscribes only when the derived query identity (or the skip flag)
// actually changes.
//
// Basic usage:
//
//	rt := reactive.New()
//	taskID := reactive.NewCell(rt, "01J...")
//
//	task, err := binding.NewQuery[Task](rt, mux, livesub.QueryRef("tasks:byId"), func() binding.Params {
//	    return binding.With(livesub.Args{"id": taskID.Get()})
//	})
//	if err != nil {
//	    return err
//	}
//	defer task.Close()
package binding
