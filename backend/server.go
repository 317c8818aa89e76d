package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

// QueryCtx is passed to query functions. It carries the evaluation's context.
type QueryCtx struct {
	context.Context //nolint:containedctx // evaluation scope

	// DB reads documents; its pagination state belongs to the subscription.
	DB *Reader
}

// MutationCtx is passed to mutation functions.
type MutationCtx struct {
	context.Context //nolint:containedctx // mutation scope

	// DB reads and writes documents.
	DB *DB
}

// QueryFunc evaluates a query. The result is encoded as JSON.
type QueryFunc func(qc *QueryCtx, args types.Args) (any, error)

// MutationFunc performs a mutation. The result is encoded as JSON.
type MutationFunc func(mc *MutationCtx, args types.Args) (any, error)

// PushFunc receives the results of a live subscription. Exactly one of raw and
// err is set. Calls for one subscription are serial.
type PushFunc func(raw json.RawMessage, err error)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l types.Logger) Option {
	return func(s *Server) {
		s.logger = logger.OrNop(l)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(s *Server) {
		s.metrics = metrics.OrNop(m)
	}
}

// Server runs query and mutation functions over a Storage and keeps live
// subscriptions up to date.
type Server struct {
	cfg     Config
	db      *DB
	logger  types.Logger
	metrics types.MetricsCollector

	mu        sync.RWMutex
	queries   map[string]QueryFunc
	mutations map[string]MutationFunc

	subs    *xsync.Map[uint64, *liveQuery]
	nextID  atomic.Uint64
	writeMu sync.Mutex
	closed  atomic.Bool
}

// liveQuery is one subscription.
type liveQuery struct {
	id       uint64
	function string
	fn       QueryFunc
	args     types.Args
	reader   *Reader
	push     PushFunc

	// mu serializes evaluations and pushes.
	mu        sync.Mutex
	lastHash  uint64
	hasResult bool

	// cancelled is read without mu: a push may cancel its own subscription.
	cancelled atomic.Bool
}

// NewServer creates a Server over store.
//
// Parameters:
//   - store: Document storage (NewMemoryStorage or kvstorage)
//   - cfg: Configuration; nil uses DefaultConfig
//   - opts: Logger and metrics
//
// Returns:
//   - *Server: Server without registered functions
//   - error: Configuration validation error
func NewServer(store Storage, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}

	var c Config
	if cfg != nil {
		c = *cfg
	}
	SetDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       c,
		logger:    logger.NewNop(),
		metrics:   metrics.NewNop(),
		queries:   make(map[string]QueryFunc),
		mutations: make(map[string]MutationFunc),
		subs:      xsync.NewMap[uint64, *liveQuery](),
	}
	s.db = newDB(store, &s.cfg)
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RegisterQuery registers fn under name ("module:function").
func (s *Server) RegisterQuery(name string, fn QueryFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" || fn == nil {
		return errors.New("query name and function are required")
	}
	if _, exists := s.queries[name]; exists {
		return fmt.Errorf("%w: query %s", ErrDuplicateFunction, name)
	}
	if _, exists := s.mutations[name]; exists {
		return fmt.Errorf("%w: %s is a mutation", ErrDuplicateFunction, name)
	}
	s.queries[name] = fn

	return nil
}

// RegisterMutation registers fn under name ("module:function").
func (s *Server) RegisterMutation(name string, fn MutationFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" || fn == nil {
		return errors.New("mutation name and function are required")
	}
	if _, exists := s.mutations[name]; exists {
		return fmt.Errorf("%w: mutation %s", ErrDuplicateFunction, name)
	}
	if _, exists := s.queries[name]; exists {
		return fmt.Errorf("%w: %s is a query", ErrDuplicateFunction, name)
	}
	s.mutations[name] = fn

	return nil
}

// Query evaluates a query once.
func (s *Server) Query(ctx context.Context, name string, args types.Args) (json.RawMessage, error) {
	fn, err := s.query(name)
	if err != nil {
		return nil, err
	}

	raw, _, err := s.evaluate(ctx, name, fn, args, s.db.reader(&pin{}))

	return raw, err
}

// Subscribe opens a live subscription. The first result is pushed before
// Subscribe returns; later results are pushed after mutations that change it.
//
// Returns:
//   - func(): Cancels the subscription; safe to call more than once
//   - error: ErrUnknownFunction or ErrClosed
func (s *Server) Subscribe(ctx context.Context, name string, args types.Args, push PushFunc) (func(), error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	fn, err := s.query(name)
	if err != nil {
		return nil, err
	}

	lq := &liveQuery{
		id:       s.nextID.Add(1),
		function: name,
		fn:       fn,
		args:     args,
		reader:   s.db.reader(&pin{}),
		push:     push,
	}
	s.subs.Store(lq.id, lq)
	s.logger.Debug("live query opened", "function", name, "subscription", lq.id)

	s.refresh(ctx, lq)

	return func() { s.cancel(lq) }, nil
}

// Mutate runs a mutation and then refreshes every live subscription.
//
// Mutations are serialized. A failed mutation returns a *types.FunctionError.
func (s *Server) Mutate(ctx context.Context, name string, args types.Args) (json.RawMessage, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	fn, ok := s.mutations[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: mutation %s", ErrUnknownFunction, name)
	}

	s.writeMu.Lock()
	result, err := fn(&MutationCtx{Context: ctx, DB: s.db}, args)
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Warn("mutation failed", "function", name, "error", err)
		return nil, asFunctionError(name, err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, asFunctionError(name, fmt.Errorf("failed to encode result: %w", err))
	}

	s.RefreshAll(ctx)

	return raw, nil
}

// RefreshAll re-evaluates every live subscription.
func (s *Server) RefreshAll(ctx context.Context) {
	var live []*liveQuery
	s.subs.Range(func(_ uint64, lq *liveQuery) bool {
		live = append(live, lq)
		return true
	})

	for _, lq := range live {
		s.refresh(ctx, lq)
	}
}

// Subscriptions returns the number of live subscriptions.
func (s *Server) Subscriptions() int {
	return s.subs.Size()
}

// Close cancels every subscription. Later calls fail with ErrClosed.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.subs.Range(func(_ uint64, lq *liveQuery) bool {
		s.cancel(lq)
		return true
	})
}

func (s *Server) query(name string) (QueryFunc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn, ok := s.queries[name]
	if !ok {
		return nil, fmt.Errorf("%w: query %s", ErrUnknownFunction, name)
	}

	return fn, nil
}

// refresh evaluates lq and pushes the result when it changed. Errors are
// compared by message the same way results are compared by encoding.
func (s *Server) refresh(ctx context.Context, lq *liveQuery) {
	lq.mu.Lock()
	defer lq.mu.Unlock()

	if lq.cancelled.Load() {
		return
	}

	start := time.Now()
	raw, hash, err := s.evaluate(ctx, lq.function, lq.fn, lq.args, lq.reader)
	if err != nil {
		hash = xxh3.HashString("error:" + err.Error())
	}

	changed := !lq.hasResult || hash != lq.lastHash
	s.metrics.RecordQueryEvaluation(time.Since(start).Seconds(), changed)
	if !changed || lq.cancelled.Load() {
		return
	}
	lq.lastHash, lq.hasResult = hash, true

	lq.push(raw, err)
}

func (s *Server) evaluate(ctx context.Context, name string, fn QueryFunc, args types.Args, r *Reader) (json.RawMessage, uint64, error) {
	result, err := fn(&QueryCtx{Context: ctx, DB: r}, args)
	if err != nil {
		s.logger.Debug("query failed", "function", name, "error", err)
		return nil, 0, asFunctionError(name, err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, 0, asFunctionError(name, fmt.Errorf("failed to encode result: %w", err))
	}
	s.logger.Debug("query evaluated", "function", name, "bytes", len(raw))

	return raw, xxh3.Hash(raw), nil
}

func (s *Server) cancel(lq *liveQuery) {
	if !lq.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.subs.Delete(lq.id)
	s.logger.Debug("live query closed", "function", lq.function, "subscription", lq.id)
}

// asFunctionError wraps err as a *types.FunctionError unless it already is one.
func asFunctionError(name string, err error) error {
	var fe *types.FunctionError
	if errors.As(err, &fe) {
		return err
	}

	return &types.FunctionError{Function: name, Message: err.Error()}
}
