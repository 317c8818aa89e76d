package livesub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/backend"
	"github.com/arloliu/livesub/backend/tasks"
	"github.com/arloliu/livesub/natsbridge"
	livesubtest "github.com/arloliu/livesub/testing"
)

func TestDial_RequiresURL(t *testing.T) {
	t.Setenv(URLEnv, "")

	_, err := Dial(nil)
	require.ErrorIs(t, err, ErrURLRequired)

	cfg := TestConfig()
	_, err = Dial(&cfg)
	require.ErrorIs(t, err, ErrURLRequired)
}

func TestDial_InvalidConfig(t *testing.T) {
	cfg := TestConfig()
	cfg.Transport.URL = "nats://127.0.0.1:1"
	cfg.Transport.SubjectPrefix = "bad.*"

	_, err := Dial(&cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDial_ConnectFailure(t *testing.T) {
	cfg := TestConfig()
	cfg.Transport.URL = "nats://127.0.0.1:1"

	_, err := Dial(&cfg)
	require.ErrorIs(t, err, ErrTransport)
}

func TestDial_EndToEnd(t *testing.T) {
	ns, _ := livesubtest.StartEmbeddedNATS(t)
	log := livesubtest.NewTestLogger(t)

	be, err := backend.NewServer(backend.NewMemoryStorage(), nil, backend.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(be.Close)
	require.NoError(t, tasks.Register(be))

	bridge, err := natsbridge.NewServer(livesubtest.Connect(t, ns), be, natsbridge.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bridge.Close() })

	// The URL comes from the environment.
	t.Setenv(URLEnv, ns.ClientURL())
	cfg := TestConfig()
	client, err := Dial(&cfg, WithLogger(log))
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, 5, client.Config().PageSize)

	var mu sync.Mutex
	var a, b []Result
	la := NewListener(func(r Result) { mu.Lock(); a = append(a, r); mu.Unlock() })
	lb := NewListener(func(r Result) { mu.Lock(); b = append(b, r); mu.Unlock() })

	mux := client.Multiplexer()
	unsubA, err := mux.Track(tasks.GetAll, nil, la)
	require.NoError(t, err)
	unsubB, err := mux.Track(tasks.GetAll, Args{}, lb)
	require.NoError(t, err)
	require.Equal(t, Stats{Subscriptions: 1, Listeners: 2}, mux.Stats())

	raw, err := client.Mutate(t.Context(), tasks.Create, Args{"title": "t", "category": "c", "completed": true}, nil)
	require.NoError(t, err)
	var id string
	require.NoError(t, json.Unmarshal(raw, &id))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(a) > 0 && len(b) > 0 && json.Valid(a[len(a)-1].Data) && len(a[len(a)-1].Data) > 2 && len(b[len(b)-1].Data) > 2
	}, 5*time.Second, 10*time.Millisecond)

	unsubA()
	unsubB()
	require.Equal(t, Stats{}, mux.Stats())

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return bridge.Watches() == 0 }, 5*time.Second, 10*time.Millisecond)
}
