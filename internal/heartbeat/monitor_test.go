package heartbeat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestMonitor(ttl time.Duration) (*Monitor, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMonitor(ttl)
	m.now = clock.Now

	return m, clock
}

func TestMonitor_Expired(t *testing.T) {
	m, clock := newTestMonitor(6 * time.Second)
	require.Equal(t, 6*time.Second, m.TTL())

	m.Seen("a")
	m.Seen("b")
	require.Equal(t, 2, m.Clients())
	require.Empty(t, m.Expired())

	clock.Advance(4 * time.Second)
	m.Seen("b")
	clock.Advance(4 * time.Second)

	require.False(t, m.Alive("a"))
	require.True(t, m.Alive("b"))
	require.Equal(t, []string{"a"}, m.Expired())
	require.Equal(t, 1, m.Clients())

	// Expired clients are reported once.
	require.Empty(t, m.Expired())

	clock.Advance(7 * time.Second)
	require.Equal(t, []string{"b"}, m.Expired())
	require.Equal(t, 0, m.Clients())
}

func TestMonitor_Forget(t *testing.T) {
	m, clock := newTestMonitor(time.Second)

	m.Seen("a")
	m.Forget("a")
	clock.Advance(2 * time.Second)

	require.False(t, m.Alive("a"))
	require.Empty(t, m.Expired())
}
