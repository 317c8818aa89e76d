package binding

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/pagination"
	"github.com/arloliu/livesub/reactive"
	"github.com/arloliu/livesub/types"
)

// PaginatedOptions configures a PaginatedQuery.
type PaginatedOptions struct {
	// PageSize is the number of items per page, including the first.
	// Zero selects pagination.DefaultPageSize.
	PageSize int

	Logger  types.Logger
	Metrics types.MetricsCollector
	Hooks   *types.Hooks
}

// PaginatedQuery is a cursor-pinned paginated live query bound to a reactive runtime.
//
// The binding owns one pagination.Session per distinct argument identity.
// The skip sentinel pauses the session and keeps its pages, so returning to
// the same arguments resumes without re-reading from the first page. Any other
// argument change disposes the session and starts a new one.
type PaginatedQuery[T any] struct {
	rt      types.ReactiveRuntime
	tracker types.Tracker
	query   types.FunctionReference
	opts    PaginatedOptions
	logger  types.Logger
	sig     types.Signal

	mu        sync.Mutex
	session   *pagination.Session
	sessionID types.Identity
	skipped   bool
	err       error

	stops     []func()
	closeOnce sync.Once
}

// NewPaginatedQuery binds a paginated query to the runtime.
//
// params must not set the "paginationOpts" argument; the session adds it per page.
//
// Returns:
//   - *PaginatedQuery[T]: Binding; call Close to release every page subscription
//   - error: ErrRuntimeRequired, ErrTrackerRequired, ErrInvalidFunctionReference or ErrInvalidPageSize
func NewPaginatedQuery[T any](
	rt types.ReactiveRuntime,
	tracker types.Tracker,
	query types.FunctionReference,
	params func() Params,
	opts PaginatedOptions,
) (*PaginatedQuery[T], error) {
	if rt == nil {
		return nil, types.ErrRuntimeRequired
	}
	if tracker == nil {
		return nil, types.ErrTrackerRequired
	}
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidPageSize, opts.PageSize)
	}

	q := &PaginatedQuery[T]{
		rt:      rt,
		tracker: tracker,
		query:   query,
		opts:    opts,
		logger:  logger.OrNop(opts.Logger),
		sig:     rt.NewSignal(),
	}

	current := reactive.NewCellFunc(rt, request{skip: true}, request.same)

	q.stops = append(q.stops, rt.Effect(func(types.EffectScope) {
		current.Set(resolve(query, params))
	}))
	q.stops = append(q.stops, rt.Effect(func(types.EffectScope) {
		req := current.Get()
		rt.Untracked(func() { q.apply(req) })
	}))

	return q, nil
}

// apply moves the binding to req: pause on skip, resume on the same
// identity, replace the session otherwise.
func (q *PaginatedQuery[T]) apply(req request) {
	q.mu.Lock()
	old, oldID := q.session, q.sessionID

	switch {
	case req.skip:
		q.skipped = true
		q.mu.Unlock()

		if old != nil {
			old.Pause()
		}
		q.sig.Write()

		return

	case req.err == nil && old != nil && oldID == req.id:
		q.skipped = false
		q.mu.Unlock()

		old.Resume()
		q.sig.Write()

		return
	}

	q.session, q.sessionID = nil, ""
	q.skipped = false
	q.err = req.err
	q.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
	if req.err != nil {
		q.sig.Write()
		return
	}

	s, err := pagination.NewSession(q.tracker, q.query, req.args, pagination.Options{
		PageSize: q.opts.PageSize,
		OnChange: q.sig.Write,
		Logger:   q.opts.Logger,
		Metrics:  q.opts.Metrics,
		Hooks:    q.opts.Hooks,
	})
	if err != nil {
		q.mu.Lock()
		q.err = err
		q.mu.Unlock()
		q.sig.Write()

		return
	}

	q.mu.Lock()
	q.session, q.sessionID = s, req.id
	q.mu.Unlock()

	q.logger.Debug("paginated query started", "query", q.query.FunctionName(), "identity", req.id)
	s.Start()
}

func (q *PaginatedQuery[T]) current() (*pagination.Session, bool) {
	q.sig.Read()

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.session, q.skipped
}

// Results returns the decoded items of every page in result order. It is
// empty while skipped. Items that do not decode into T are left out.
func (q *PaginatedQuery[T]) Results() []T {
	s, skipped := q.current()
	if s == nil || skipped {
		return nil
	}

	items := s.Items()
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			q.logger.Warn("dropping undecodable item", "query", q.query.FunctionName(), "error", err)
			continue
		}
		out = append(out, v)
	}

	return out
}

// Status returns the caller-facing pagination status.
func (q *PaginatedQuery[T]) Status() types.PaginationStatus {
	s, skipped := q.current()
	if s == nil || skipped {
		return types.PaginationIdle
	}

	switch s.State() {
	case types.SessionUninitialized, types.SessionLoadingFirstPage:
		return types.PaginationLoadingFirstPage
	case types.SessionPaused, types.SessionDisposed:
		return types.PaginationIdle
	case types.SessionLoadingMore, types.SessionSplitting:
		return types.PaginationLoadingMore
	}

	switch {
	case s.IsDone():
		return types.PaginationExhausted
	case s.CanLoadMore():
		return types.PaginationCanLoadMore
	default:
		return types.PaginationLoadingMore
	}
}

// Loading reports whether any page is pending.
func (q *PaginatedQuery[T]) Loading() bool {
	switch q.Status() {
	case types.PaginationLoadingFirstPage, types.PaginationLoadingMore:
		return true
	default:
		return false
	}
}

// Err returns the argument error or the first page error, if any.
func (q *PaginatedQuery[T]) Err() error {
	q.sig.Read()

	q.mu.Lock()
	s, err := q.session, q.err
	q.mu.Unlock()

	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	return s.Err()
}

// LoadMore requests the next page. It reports false when nothing was requested.
func (q *PaginatedQuery[T]) LoadMore() bool {
	q.mu.Lock()
	s, skipped := q.session, q.skipped
	q.mu.Unlock()

	if s == nil || skipped {
		return false
	}

	return s.LoadMore()
}

// Close disposes the session and stops the binding's effects. It is idempotent.
func (q *PaginatedQuery[T]) Close() {
	q.closeOnce.Do(func() {
		for i := len(q.stops) - 1; i >= 0; i-- {
			q.stops[i]()
		}

		q.mu.Lock()
		s := q.session
		q.session, q.sessionID = nil, ""
		q.mu.Unlock()

		if s != nil {
			s.Dispose()
		}
	})
}
