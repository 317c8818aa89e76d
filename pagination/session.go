package pagination

import (
	"container/list"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/arloliu/livesub/internal/hooks"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

// DefaultPageSize is used when Options.PageSize is zero.
const DefaultPageSize = 20

// Options configures a Session.
type Options struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// OnChange, when set, is called after every change of the session's pages
	// or state. It runs without any session lock held and may call back into
	// the session.
	OnChange func()

	Logger  types.Logger
	Metrics types.MetricsCollector
	Hooks   *types.Hooks
}

// Session is one paginated live query.
//
// All methods are safe for concurrent use. The Session never holds its lock
// while calling the tracker or OnChange.
type Session struct {
	tracker  types.Tracker
	query    types.FunctionReference
	args     types.Args
	pageSize int
	onChange func()
	logger   types.Logger
	metrics  types.MetricsCollector
	hooks    *types.Hooks

	mu       sync.Mutex
	state    types.SessionState
	pages    *list.List // of *page, in result order
	byKey    map[uint64]*list.Element
	nextKey  uint64
	isDone   bool
	frontier types.Cursor
}

// action is a tracker call computed under the lock and executed after it.
type action struct {
	track    bool
	page     *page
	args     types.Args
	listener *types.Listener
	reason   requestReason
}

// NewSession creates a session for query with the caller's args.
//
// The session is idle until Start is called.
//
// Parameters:
//   - tracker: Tracking primitive used for every page subscription
//   - query: Paginated query reference
//   - args: Caller arguments; pagination options are added per page
//   - opts: Page size, change callback and ambient dependencies
//
// Returns:
//   - *Session: Uninitialized session
//   - error: ErrTrackerRequired, ErrInvalidFunctionReference or ErrInvalidPageSize
//
// Example:
//
//	s, err := pagination.NewSession(mux, livesub.QueryRef("tasks:list"), nil, pagination.Options{PageSize: 10})
//	if err != nil {
//	    return err
//	}
//	s.Start()
//	defer s.Dispose()
func NewSession(tracker types.Tracker, query types.FunctionReference, args types.Args, opts Options) (*Session, error) {
	if tracker == nil {
		return nil, types.ErrTrackerRequired
	}
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidPageSize, opts.PageSize)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	if _, reserved := args[types.PaginationArgKey]; reserved {
		return nil, fmt.Errorf("%w: %q is reserved for pagination", types.ErrInvalidArgs, types.PaginationArgKey)
	}

	return &Session{
		tracker:  tracker,
		query:    query,
		args:     maps.Clone(args),
		pageSize: opts.PageSize,
		onChange: opts.OnChange,
		logger:   logger.OrNop(opts.Logger),
		metrics:  metrics.OrNop(opts.Metrics),
		hooks:    hooks.Complete(opts.Hooks),
		state:    types.SessionUninitialized,
		pages:    list.New(),
		byKey:    make(map[uint64]*list.Element),
	}, nil
}

// Start requests the first page. Calling Start more than once is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.state != types.SessionUninitialized {
		s.mu.Unlock()
		return
	}

	p := s.newPageLocked("", "")
	s.byKey[p.key] = s.pages.PushBack(p)
	act := s.subscribeLocked(p, reasonInitial)
	s.state = types.SessionLoadingFirstPage
	s.mu.Unlock()

	s.logger.Debug("pagination session started", "query", s.query.FunctionName(), "pageSize", s.pageSize)
	s.run([]action{act})
	s.changed()
}

// LoadMore appends a page starting at the current frontier. When the last
// page failed, LoadMore re-requests that page instead.
//
// It returns false, without side effects, when the result set is exhausted,
// the session is paused or disposed, or the last page has not delivered yet.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	if !s.canLoadMoreLocked() {
		s.mu.Unlock()
		return false
	}

	tail, _ := s.pages.Back().Value.(*page)
	if tail.err != nil {
		acts := []action{s.releaseLocked(tail)}
		tail.err = nil
		acts = append(acts, s.subscribeLocked(tail, reasonRetry))
		s.refreshStateLocked()
		s.mu.Unlock()

		s.logger.Debug("retrying failed page", "query", s.query.FunctionName(), "page", tail.key, "cursor", tail.cursor)
		s.run(acts)
		s.changed()

		return true
	}
	tail.pinnedEnd = s.frontier

	p := s.newPageLocked(s.frontier, "")
	s.byKey[p.key] = s.pages.PushBack(p)
	act := s.subscribeLocked(p, reasonLoadMore)
	s.refreshStateLocked()
	s.mu.Unlock()

	s.logger.Debug("loading more", "query", s.query.FunctionName(), "cursor", p.cursor)
	s.run([]action{act})
	s.changed()

	return true
}

// CanLoadMore reports whether LoadMore would request a page.
func (s *Session) CanLoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.canLoadMoreLocked()
}

// Pause releases every page subscription but keeps the pages and their items.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state == types.SessionDisposed || s.state == types.SessionPaused || s.state == types.SessionUninitialized {
		s.mu.Unlock()
		return
	}

	acts := s.releaseAllLocked()
	s.state = types.SessionPaused
	s.mu.Unlock()

	s.logger.Debug("pagination session paused", "query", s.query.FunctionName(), "pages", len(acts))
	s.run(acts)
	s.changed()
}

// Resume re-subscribes every page of a paused session. Pages that had a later
// page appended are re-requested with their end bound pinned.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.state != types.SessionPaused {
		s.mu.Unlock()
		return
	}

	acts := make([]action, 0, s.pages.Len())
	for e := s.pages.Front(); e != nil; e = e.Next() {
		p, _ := e.Value.(*page)
		acts = append(acts, s.subscribeLocked(p, reasonResume))
	}
	s.state = types.SessionReady
	s.refreshStateLocked()
	s.mu.Unlock()

	s.logger.Debug("pagination session resumed", "query", s.query.FunctionName(), "pages", len(acts))
	s.run(acts)
	s.changed()
}

// Dispose untracks every page and clears the session. It is idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.state == types.SessionDisposed {
		s.mu.Unlock()
		return
	}

	acts := s.releaseAllLocked()
	s.pages.Init()
	clear(s.byKey)
	s.isDone = false
	s.frontier = ""
	s.state = types.SessionDisposed
	s.mu.Unlock()

	s.logger.Debug("pagination session disposed", "query", s.query.FunctionName(), "released", len(acts))
	s.run(acts)
	s.changed()
}

// Items returns the concatenation of every page's items in result order.
// It is recomputed on every call.
func (s *Session) Items() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []json.RawMessage
	for e := s.pages.Front(); e != nil; e = e.Next() {
		p, _ := e.Value.(*page)
		out = append(out, p.items...)
	}

	return out
}

// Pages returns a snapshot of the pages in result order.
func (s *Session) Pages() []PageView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PageView, 0, s.pages.Len())
	for e := s.pages.Front(); e != nil; e = e.Next() {
		p, _ := e.Value.(*page)
		out = append(out, p.view())
	}

	return out
}

// State returns the lifecycle state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// IsDone reports whether the last page reached the end of the result set.
func (s *Session) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isDone
}

// Frontier returns the continue cursor of the last page.
func (s *Session) Frontier() types.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frontier
}

// Err returns the first page error in result order, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for e := s.pages.Front(); e != nil; e = e.Next() {
		if p, _ := e.Value.(*page); p.err != nil {
			return p.err
		}
	}

	return nil
}

// onResult handles one delivery for page p through listener l.
func (s *Session) onResult(p *page, l *types.Listener, r types.Result) {
	s.mu.Lock()
	if p.retired || p.listener != l || s.state == types.SessionDisposed {
		s.mu.Unlock()
		return
	}

	if r.Err != nil {
		p.err = r.Err
		p.loading = false
		s.refreshStateLocked()
		s.mu.Unlock()

		s.logger.Warn("page failed", "query", s.query.FunctionName(), "page", p.key, "error", r.Err)
		s.changed()

		return
	}

	var res types.PaginationResult
	if err := json.Unmarshal(r.Data, &res); err != nil {
		p.err = fmt.Errorf("%w: %w", types.ErrMalformedResult, err)
		p.loading = false
		s.refreshStateLocked()
		s.mu.Unlock()

		s.metrics.RecordTransportError("decode")
		s.logger.Error("malformed page result", "query", s.query.FunctionName(), "page", p.key, "error", err)
		s.changed()

		return
	}

	if res.IsSplit() {
		acts := s.splitLocked(p, res)
		s.mu.Unlock()

		s.metrics.RecordPageSplit()
		s.hooks.OnSplit(s.query.FunctionName(), res.SplitCursor)
		s.logger.Debug("page split", "query", s.query.FunctionName(), "page", p.key, "splitCursor", res.SplitCursor)
		s.run(acts)
		s.changed()

		return
	}

	p.items = res.Page
	if p.items == nil {
		p.items = []json.RawMessage{}
	}
	p.loading = false
	p.loaded = true
	p.err = nil
	if s.pages.Back().Value == p {
		s.isDone = res.IsDone
		s.frontier = res.ContinueCursor
	}
	s.refreshStateLocked()
	s.mu.Unlock()

	s.metrics.RecordPageItems(len(res.Page))
	s.changed()
}

// splitLocked replaces p by two successors covering (cursor, split] and
// (split, continue].
func (s *Session) splitLocked(p *page, res types.PaginationResult) []action {
	elem := s.byKey[p.key]

	end := res.ContinueCursor
	if end.IsZero() {
		end = p.requestEnd()
	}

	left := s.newPageLocked(p.cursor, res.SplitCursor)
	right := s.newPageLocked(res.SplitCursor, end)
	s.byKey[left.key] = s.pages.InsertBefore(left, elem)
	s.byKey[right.key] = s.pages.InsertAfter(right, elem)
	s.pages.Remove(elem)
	delete(s.byKey, p.key)

	acts := []action{s.releaseLocked(p)}
	acts = append(acts, s.subscribeLocked(left, reasonSplit), s.subscribeLocked(right, reasonSplit))
	s.refreshStateLocked()

	return acts
}

func (s *Session) newPageLocked(cursor, endCursor types.Cursor) *page {
	s.nextKey++

	return &page{key: s.nextKey, cursor: cursor, endCursor: endCursor}
}

// subscribeLocked prepares a track action for p with a fresh listener.
func (s *Session) subscribeLocked(p *page, reason requestReason) action {
	p.args = types.WithPagination(s.args, types.PaginationOptions{
		Cursor:    p.cursor,
		NumItems:  s.pageSize,
		EndCursor: p.requestEnd(),
	})

	var l *types.Listener
	l = types.NewListener(func(r types.Result) { s.onResult(p, l, r) })
	p.listener = l
	p.loading = true
	p.retired = false
	p.reason = reason

	return action{track: true, page: p, args: p.args, listener: l, reason: reason}
}

// releaseLocked prepares an untrack action and detaches p from its listener.
func (s *Session) releaseLocked(p *page) action {
	act := action{page: p, args: p.args, listener: p.listener}
	p.retired = true
	p.listener = nil
	p.loading = false

	return act
}

func (s *Session) releaseAllLocked() []action {
	acts := make([]action, 0, s.pages.Len())
	for e := s.pages.Front(); e != nil; e = e.Next() {
		p, _ := e.Value.(*page)
		if p.listener != nil {
			acts = append(acts, s.releaseLocked(p))
		}
	}

	return acts
}

func (s *Session) canLoadMoreLocked() bool {
	if s.state == types.SessionDisposed || s.state == types.SessionPaused || s.state == types.SessionUninitialized {
		return false
	}
	if s.pages.Len() == 0 {
		return false
	}
	tail, _ := s.pages.Back().Value.(*page)
	if tail.loading {
		return false
	}
	if tail.err != nil {
		return true
	}

	return !s.isDone && tail.loaded
}

// refreshStateLocked derives the state from the pages. Paused, Disposed and
// Uninitialized are left alone.
func (s *Session) refreshStateLocked() {
	switch s.state {
	case types.SessionDisposed, types.SessionPaused, types.SessionUninitialized:
		return
	}

	anyLoaded, splitting := false, false
	for e := s.pages.Front(); e != nil; e = e.Next() {
		p, _ := e.Value.(*page)
		if p.loaded {
			anyLoaded = true
		}
		if p.loading && p.reason == reasonSplit {
			splitting = true
		}
	}

	var tail *page
	if back := s.pages.Back(); back != nil {
		tail, _ = back.Value.(*page)
	}

	switch {
	case !anyLoaded && tail != nil && tail.loading:
		s.state = types.SessionLoadingFirstPage
	case splitting:
		s.state = types.SessionSplitting
	case tail != nil && tail.loading && !tail.loaded:
		s.state = types.SessionLoadingMore
	default:
		s.state = types.SessionReady
	}
}

// run executes tracker actions in order, without the lock.
func (s *Session) run(acts []action) {
	for _, act := range acts {
		if !act.track {
			if act.listener != nil {
				s.tracker.Untrack(s.query, act.args, act.listener)
			}

			continue
		}

		s.metrics.RecordPageRequest(string(act.reason))
		if _, err := s.tracker.Track(s.query, act.args, act.listener); err != nil {
			s.trackFailed(act.page, act.listener, err)
			continue
		}

		// The page may have been released while Track was running.
		if s.detached(act.page, act.listener) {
			s.tracker.Untrack(s.query, act.args, act.listener)
		}
	}
}

func (s *Session) detached(p *page, l *types.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return p.listener != l
}

func (s *Session) trackFailed(p *page, l *types.Listener, err error) {
	s.mu.Lock()
	if p.listener != l {
		s.mu.Unlock()
		return
	}
	p.err = err
	p.loading = false
	p.listener = nil
	s.refreshStateLocked()
	s.mu.Unlock()

	s.logger.Error("failed to track page", "query", s.query.FunctionName(), "page", p.key, "error", err)
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
