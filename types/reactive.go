package types

// ReactiveRuntime is the host framework's fine-grained reactivity, as seen by the bindings.
//
// The bindings only declare computations and storage through this interface;
// scheduling belongs to the runtime.
type ReactiveRuntime interface {
	// Effect declares a computation. fn runs once immediately (or as soon as the
	// runtime's scheduler allows) and again whenever a Signal it read changes.
	//
	// Returns:
	//   - func(): Stops the computation and runs its pending cleanups
	Effect(fn func(scope EffectScope)) (stop func())

	// NewSignal creates a reactive storage cell marker.
	NewSignal() Signal

	// Untracked runs fn without registering signal reads as dependencies.
	Untracked(fn func())
}

// EffectScope is passed to every run of an effect.
type EffectScope interface {
	// OnCleanup registers fn to run before the next run of the effect and when it stops.
	OnCleanup(fn func())
}

// Signal marks a piece of reactive storage.
//
// Bindings keep their values in ordinary Go fields and call Read when the value
// is observed and Write after it changed.
type Signal interface {
	// Read registers the signal as a dependency of the running effect, if any.
	Read()

	// Write schedules every effect that read the signal.
	Write()
}
