package heartbeat

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Monitor records the last heartbeat of every client.
type Monitor struct {
	ttl  time.Duration
	now  func() time.Time
	seen *xsync.Map[string, time.Time]
}

// NewMonitor creates a Monitor expiring clients silent for longer than ttl.
func NewMonitor(ttl time.Duration) *Monitor {
	return &Monitor{
		ttl:  ttl,
		now:  time.Now,
		seen: xsync.NewMap[string, time.Time](),
	}
}

// TTL returns the expiry duration.
func (m *Monitor) TTL() time.Duration {
	return m.ttl
}

// Seen records a heartbeat of client.
func (m *Monitor) Seen(client string) {
	m.seen.Store(client, m.now())
}

// Forget removes client without reporting it as expired.
func (m *Monitor) Forget(client string) {
	m.seen.Delete(client)
}

// Alive reports whether client sent a heartbeat within the TTL.
func (m *Monitor) Alive(client string) bool {
	last, ok := m.seen.Load(client)

	return ok && m.now().Sub(last) <= m.ttl
}

// Clients returns the number of tracked clients.
func (m *Monitor) Clients() int {
	return m.seen.Size()
}

// Expired removes and returns every client whose last heartbeat is older than the TTL.
func (m *Monitor) Expired() []string {
	cutoff := m.now().Add(-m.ttl)

	var expired []string
	m.seen.Range(func(client string, last time.Time) bool {
		if last.Before(cutoff) {
			expired = append(expired, client)
		}

		return true
	})

	out := expired[:0]
	for _, client := range expired {
		// A heartbeat may have arrived since the scan.
		deleted := false
		m.seen.Compute(client, func(last time.Time, loaded bool) (time.Time, xsync.ComputeOp) {
			if loaded && last.Before(cutoff) {
				deleted = true
				return last, xsync.DeleteOp
			}

			return last, xsync.CancelOp
		})
		if deleted {
			out = append(out, client)
		}
	}

	return out
}
