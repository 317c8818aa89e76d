package heartbeat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

// Common errors for heartbeat operations.
var (
	ErrNotStarted     = errors.New("publisher not started")
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNoSubject      = errors.New("heartbeat subject not set")
)

// Publisher publishes periodic heartbeats on a NATS subject.
type Publisher struct {
	nc       *nats.Conn
	subject  string
	payload  []byte
	interval time.Duration

	mu      sync.Mutex
	logger  types.Logger
	metrics types.MetricsCollector
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  *time.Ticker
}

// New creates a new heartbeat publisher.
//
// The receiving Monitor should use a TTL of ~3x the interval to expire a
// client after 3 missed heartbeats.
//
// Parameters:
//   - nc: NATS connection
//   - subject: Subject the heartbeats are published on
//   - payload: Message body, identifying the client
//   - interval: Heartbeat interval (typically 2s)
//
// Returns:
//   - *Publisher: New heartbeat publisher instance
func New(nc *nats.Conn, subject string, payload []byte, interval time.Duration) *Publisher {
	return &Publisher{
		nc:       nc,
		subject:  subject,
		payload:  payload,
		interval: interval,
		logger:   logger.NewNop(),
		metrics:  metrics.NewNop(),
	}
}

// SetLogger sets the logger for publish failures.
func (p *Publisher) SetLogger(l types.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = logger.OrNop(l)
}

// SetMetrics sets the metrics collector. Failed heartbeats are recorded as
// transport errors of operation "heartbeat".
func (p *Publisher) SetMetrics(m types.MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics = metrics.OrNop(m)
}

// Start begins publishing heartbeats in the background.
//
// Publishes the first heartbeat immediately, then at regular intervals.
// Continues until Stop() is called.
//
// Returns:
//   - error: ErrAlreadyStarted if already running, ErrNoSubject if the subject is empty
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if p.subject == "" {
		return ErrNoSubject
	}

	if err := p.publish(); err != nil {
		return fmt.Errorf("failed to publish initial heartbeat: %w", err)
	}

	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)

	go p.publishLoop(p.ticker, p.stopCh, p.doneCh)

	return nil
}

// Stop stops the publisher. It blocks until the publishing goroutine exits.
//
// Returns:
//   - error: ErrNotStarted if not running
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false
	done := p.doneCh
	p.mu.Unlock()

	<-done

	return nil
}

// IsStarted returns whether the publisher is currently running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func (p *Publisher) publishLoop(ticker *time.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := p.publish(); err != nil {
				p.mu.Lock()
				l, m := p.logger, p.metrics
				p.mu.Unlock()

				// Publishing fails while disconnected; the next tick retries.
				l.Debug("heartbeat failed", "subject", p.subject, "error", err)
				m.RecordTransportError("heartbeat")
			}
		}
	}
}

func (p *Publisher) publish() error {
	if err := p.nc.Publish(p.subject, p.payload); err != nil {
		return fmt.Errorf("failed to publish heartbeat on %s: %w", p.subject, err)
	}

	return nil
}
