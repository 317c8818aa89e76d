package heartbeat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	livesubtest "github.com/arloliu/livesub/testing"
)

func TestPublisher_Start(t *testing.T) {
	t.Run("publishes the first heartbeat immediately", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)

		sub, err := nc.SubscribeSync("hb")
		require.NoError(t, err)
		require.NoError(t, nc.Flush())

		publisher := New(nc, "hb", []byte("client-1"), time.Hour)
		require.NoError(t, publisher.Start())
		defer publisher.Stop()
		require.True(t, publisher.IsStarted())

		msg, err := sub.NextMsg(time.Second)
		require.NoError(t, err)
		require.Equal(t, "client-1", string(msg.Data))
	})

	t.Run("returns error if subject not set", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)

		publisher := New(nc, "", nil, time.Second)
		require.ErrorIs(t, publisher.Start(), ErrNoSubject)
		require.False(t, publisher.IsStarted())
	})

	t.Run("returns error if already started", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)

		publisher := New(nc, "hb", nil, time.Second)
		require.NoError(t, publisher.Start())
		require.ErrorIs(t, publisher.Start(), ErrAlreadyStarted)
		require.NoError(t, publisher.Stop())
	})

	t.Run("returns error on a closed connection", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)
		nc.Close()

		publisher := New(nc, "hb", nil, time.Second)
		require.ErrorIs(t, publisher.Start(), nats.ErrConnectionClosed)
		require.False(t, publisher.IsStarted())
	})
}

func TestPublisher_Stop(t *testing.T) {
	t.Run("stops successfully and can restart", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)

		publisher := New(nc, "hb", nil, 10*time.Millisecond)
		require.NoError(t, publisher.Start())
		require.NoError(t, publisher.Stop())
		require.False(t, publisher.IsStarted())

		require.NoError(t, publisher.Start())
		require.NoError(t, publisher.Stop())
	})

	t.Run("returns error if not started", func(t *testing.T) {
		_, nc := livesubtest.StartEmbeddedNATS(t)

		publisher := New(nc, "hb", nil, time.Second)
		require.ErrorIs(t, publisher.Stop(), ErrNotStarted)
	})
}

func TestPublisher_PeriodicHeartbeats(t *testing.T) {
	_, nc := livesubtest.StartEmbeddedNATS(t)

	var count atomic.Int32
	sub, err := nc.Subscribe("hb", func(*nats.Msg) { count.Add(1) })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	publisher := New(nc, "hb", []byte("c"), 20*time.Millisecond)
	require.NoError(t, publisher.Start())

	require.Eventually(t, func() bool { return count.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, publisher.Stop())

	// Nothing is published after Stop returned.
	require.NoError(t, nc.Flush())
	time.Sleep(50 * time.Millisecond)
	stopped := count.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, stopped, count.Load())
}
