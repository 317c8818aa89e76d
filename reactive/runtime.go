package reactive

import (
	"bytes"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"github.com/arloliu/livesub/types"
)

// Runtime is a headless types.ReactiveRuntime.
//
// Effects run on whichever goroutine starts a flush: the goroutine that
// creates an effect or writes a signal while no flush is running. Effects
// never run concurrently with each other.
//
// Dependency tracking is global to the runtime: a Signal read from another
// goroutine while an effect runs is recorded as a dependency of that effect.
// Such extra dependencies only cause additional runs. Untracked only
// suppresses reads made by its own goroutine.
type Runtime struct {
	mu       sync.Mutex
	queue    []*effect
	flushing bool
	current  *effect
	runs     uint64

	// untracked counts active Untracked calls per goroutine id.
	untracked map[uint64]int
}

var _ types.ReactiveRuntime = (*Runtime)(nil)

// New creates a Runtime.
func New() *Runtime {
	return &Runtime{}
}

type effect struct {
	rt       *Runtime
	fn       func(types.EffectScope)
	deps     []*signal
	cleanups []func()
	queued   bool
	stopped  bool
}

// OnCleanup implements types.EffectScope.
func (e *effect) OnCleanup(fn func()) {
	if fn == nil {
		return
	}

	e.rt.mu.Lock()
	e.cleanups = append(e.cleanups, fn)
	e.rt.mu.Unlock()
}

// Effect implements types.ReactiveRuntime.
//
// When called outside a flush, fn runs before Effect returns. When called from
// inside another effect, fn runs after the currently queued effects.
func (r *Runtime) Effect(fn func(types.EffectScope)) func() {
	e := &effect{rt: r, fn: fn}

	r.mu.Lock()
	r.enqueueLocked(e)
	r.mu.Unlock()

	r.flush()

	var once sync.Once

	return func() {
		once.Do(func() { r.stop(e) })
	}
}

// NewSignal implements types.ReactiveRuntime.
func (r *Runtime) NewSignal() types.Signal {
	return &signal{rt: r}
}

// Untracked implements types.ReactiveRuntime.
func (r *Runtime) Untracked(fn func()) {
	gid := goroutineID()

	r.mu.Lock()
	if r.untracked == nil {
		r.untracked = make(map[uint64]int)
	}
	r.untracked[gid]++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.untracked[gid]--; r.untracked[gid] == 0 {
			delete(r.untracked, gid)
		}
		r.mu.Unlock()
	}()

	fn()
}

// suppressedLocked reports whether the calling goroutine is inside Untracked.
func (r *Runtime) suppressedLocked() bool {
	if len(r.untracked) == 0 {
		return false
	}

	return r.untracked[goroutineID()] > 0
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id from the header of the current goroutine's stack.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)

	return id
}

// Runs returns the number of effect runs so far.
func (r *Runtime) Runs() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runs
}

func (r *Runtime) enqueueLocked(e *effect) {
	if e.queued || e.stopped {
		return
	}
	e.queued = true
	r.queue = append(r.queue, e)
}

// flush drains the queue unless another flush is already running.
func (r *Runtime) flush() {
	r.mu.Lock()
	if r.flushing {
		r.mu.Unlock()
		return
	}
	r.flushing = true

	for len(r.queue) > 0 {
		e := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		e.queued = false
		if e.stopped {
			continue
		}

		cleanups := e.cleanups
		e.cleanups = nil
		r.unlinkLocked(e)

		r.mu.Unlock()
		runCleanups(cleanups)
		r.mu.Lock()

		if e.stopped {
			continue
		}

		r.current = e
		r.runs++
		r.mu.Unlock()
		e.fn(e)
		r.mu.Lock()
		r.current = nil

		// Stopped by its own run: release what the run registered.
		if e.stopped {
			late := e.cleanups
			e.cleanups = nil
			r.unlinkLocked(e)
			r.mu.Unlock()
			runCleanups(late)
			r.mu.Lock()
		}
	}

	r.flushing = false
	r.mu.Unlock()
}

func (r *Runtime) stop(e *effect) {
	r.mu.Lock()
	if e.stopped {
		r.mu.Unlock()
		return
	}
	e.stopped = true
	running := r.current == e
	var cleanups []func()
	if !running {
		cleanups = e.cleanups
		e.cleanups = nil
		r.unlinkLocked(e)
	}
	r.mu.Unlock()

	runCleanups(cleanups)
}

// unlinkLocked removes e from every signal it depends on.
func (r *Runtime) unlinkLocked(e *effect) {
	for _, s := range e.deps {
		s.subs = slices.DeleteFunc(s.subs, func(sub *effect) bool { return sub == e })
	}
	e.deps = e.deps[:0]
}

// runCleanups runs cleanups in reverse registration order.
func runCleanups(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

type signal struct {
	rt   *Runtime
	subs []*effect
}

// Read implements types.Signal.
func (s *signal) Read() {
	r := s.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.current
	if e == nil || e.stopped || r.suppressedLocked() {
		return
	}
	if slices.Contains(e.deps, s) {
		return
	}
	e.deps = append(e.deps, s)
	s.subs = append(s.subs, e)
}

// Write implements types.Signal. Dependents are queued in the order they
// first read the signal.
func (s *signal) Write() {
	r := s.rt
	r.mu.Lock()
	for _, e := range s.subs {
		r.enqueueLocked(e)
	}
	r.mu.Unlock()

	r.flush()
}
