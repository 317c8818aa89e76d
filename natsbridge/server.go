package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/livesub/backend"
	"github.com/arloliu/livesub/internal/heartbeat"
)

// Server serves a backend.Server over NATS.
//
// All protocol messages are handled by one NATS subscription, so requests of
// one client are processed in the order they were published.
type Server struct {
	nc       *nats.Conn
	backend  *backend.Server
	subjects subjects
	opts     *options

	sub     *nats.Subscription
	watches *xsync.Map[string, *watch]
	monitor *heartbeat.Monitor // nil without heartbeat expiry
	wg      sync.WaitGroup

	ctx       context.Context //nolint:containedctx // server lifetime
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// watch is one live query served to a remote client.
type watch struct {
	id     string
	client string
	inbox  string
	seq    atomic.Uint64
	cancel func()
}

// NewServer starts serving be on nc.
//
// Parameters:
//   - nc: NATS connection, owned by the caller
//   - be: Backend executing the functions
//   - opts: Subject prefix, mutation timeout, logger and metrics
//
// Returns:
//   - *Server: Serving server; stop it with Close
//   - error: Subscription error
//
// Example:
//
//	srv, err := natsbridge.NewServer(nc, be, natsbridge.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
func NewServer(nc *nats.Conn, be *backend.Server, opts ...Option) (*Server, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if be == nil {
		return nil, errors.New("backend server is required")
	}

	o := applyOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		nc:       nc,
		backend:  be,
		subjects: newSubjects(o.prefix),
		opts:     o,
		watches:  xsync.NewMap[string, *watch](),
		ctx:      ctx,
		cancel:   cancel,
	}

	sub, err := nc.Subscribe(s.subjects.all(), s.handle)
	if err != nil {
		cancel()
		return nil, err
	}
	s.sub = sub

	if o.heartbeat > 0 {
		s.monitor = heartbeat.NewMonitor(3 * o.heartbeat)
		s.wg.Add(1)
		go s.expireLoop(o.heartbeat)
	}

	o.logger.Info("natsbridge server started", "subjects", s.subjects.all())

	return s, nil
}

// Watches returns the number of live remote subscriptions.
func (s *Server) Watches() int {
	return s.watches.Size()
}

// Close stops serving and cancels every remote subscription. The NATS
// connection stays open.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sub.Unsubscribe()
		s.cancel()
		s.wg.Wait()
		s.watches.Range(func(id string, w *watch) bool {
			s.watches.Delete(id)
			w.cancel()

			return true
		})
		s.opts.logger.Info("natsbridge server stopped")
	})

	return err
}

func (s *Server) handle(msg *nats.Msg) {
	switch msg.Subject {
	case s.subjects.subscribe:
		s.handleSubscribe(msg)
	case s.subjects.unsubscribe:
		s.handleUnsubscribe(msg)
	case s.subjects.mutate:
		s.handleMutate(msg)
	case s.subjects.heartbeat:
		s.handleHeartbeat(msg)
	default:
		s.opts.logger.Debug("ignoring message on unknown subject", "subject", msg.Subject)
	}
}

func (s *Server) handleSubscribe(msg *nats.Msg) {
	var req subscribeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" || req.Inbox == "" {
		s.opts.logger.Warn("dropping malformed subscribe request", "error", err)
		s.opts.metrics.RecordTransportError("decode")

		return
	}

	w := &watch{id: req.ID, client: clientOf(req.Inbox), inbox: req.Inbox}
	if s.monitor != nil {
		s.monitor.Seen(w.client)
	}

	// A known id is a re-sent request after a reconnect. The sequence goes on
	// so that updates already in flight stay ordered before the new ones.
	if old, ok := s.watches.LoadAndDelete(req.ID); ok {
		old.cancel()
		w.seq.Store(old.seq.Load())
	}

	cancel, err := s.backend.Subscribe(s.ctx, req.Function, req.Args, func(raw json.RawMessage, err error) {
		s.publish(w, req.Function, raw, err)
	})
	if err != nil {
		s.publish(w, req.Function, nil, err)
	} else {
		w.cancel = cancel
		s.watches.Store(req.ID, w)
		s.opts.logger.Debug("remote subscription opened", "id", req.ID, "function", req.Function)
	}

	if msg.Reply != "" {
		s.respond(msg, reply{})
	}
}

func (s *Server) handleUnsubscribe(msg *nats.Msg) {
	var req unsubscribeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.opts.logger.Warn("dropping malformed unsubscribe request", "error", err)
		s.opts.metrics.RecordTransportError("decode")

		return
	}

	if w, ok := s.watches.LoadAndDelete(req.ID); ok {
		w.cancel()
		s.opts.logger.Debug("remote subscription closed", "id", req.ID)
	}
}

func (s *Server) handleMutate(msg *nats.Msg) {
	var req mutateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.opts.metrics.RecordTransportError("decode")
		s.respond(msg, reply{Error: &wireError{Message: "malformed mutation request: " + err.Error()}})

		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.mutationTimeout)
	defer cancel()

	raw, err := s.backend.Mutate(ctx, req.Function, req.Args)
	if err != nil {
		s.respond(msg, reply{Error: toWireError(req.Function, err)})
		return
	}
	s.respond(msg, reply{Value: valueOrNull(raw)})
}

func (s *Server) handleHeartbeat(msg *nats.Msg) {
	if s.monitor == nil {
		return
	}

	var hb heartbeatMessage
	if err := json.Unmarshal(msg.Data, &hb); err != nil || hb.Client == "" {
		s.opts.metrics.RecordTransportError("decode")
		return
	}
	s.monitor.Seen(hb.Client)
}

// expireLoop cancels the subscriptions of clients whose heartbeats stopped.
func (s *Server) expireLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, client := range s.monitor.Expired() {
				s.expire(client)
			}
		}
	}
}

func (s *Server) expire(client string) {
	var expired int
	s.watches.Range(func(id string, w *watch) bool {
		if w.client != client {
			return true
		}
		// The watch may have been replaced by a re-sent request in between.
		removed := false
		s.watches.Compute(id, func(cur *watch, loaded bool) (*watch, xsync.ComputeOp) {
			if loaded && cur == w {
				removed = true
				return cur, xsync.DeleteOp
			}

			return cur, xsync.CancelOp
		})
		if removed {
			w.cancel()
			expired++
		}

		return true
	})
	s.opts.logger.Info("client heartbeat expired", "client", client, "subscriptions", expired)
}

func (s *Server) publish(w *watch, function string, raw json.RawMessage, err error) {
	u := update{Seq: w.seq.Add(1)}
	if err != nil {
		u.Error = toWireError(function, err)
	} else {
		u.Value = valueOrNull(raw)
	}

	data, mErr := json.Marshal(u)
	if mErr != nil {
		s.opts.logger.Error("failed to encode update", "id", w.id, "error", mErr)
		return
	}
	if pErr := s.nc.Publish(w.inbox, data); pErr != nil {
		s.opts.logger.Warn("failed to publish update", "id", w.id, "error", pErr)
		s.opts.metrics.RecordTransportError("publish")
	}
}

func (s *Server) respond(msg *nats.Msg, r reply) {
	data, err := json.Marshal(r)
	if err != nil {
		s.opts.logger.Error("failed to encode reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.opts.logger.Warn("failed to send reply", "subject", msg.Subject, "error", err)
	}
}
