package testing

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled for testing.
//
// The server runs in-process on a random port and stores JetStream data in a
// temporary directory. Server and connection are shut down via tb.Cleanup.
//
// Parameters:
//   - tb: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestBridge(t *testing.T) {
//	    _, nc := livesubtest.StartEmbeddedNATS(t)
//	    srv, err := natsbridge.NewServer(nc, be)
//	    require.NoError(t, err)
//	    // ...
//	}
func StartEmbeddedNATS(tb testing.TB) (*server.Server, *nats.Conn) {
	tb.Helper()

	ns := startServer(tb, -1, tb.TempDir())
	nc, err := nats.Connect(ns.ClientURL(),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
	)
	if err != nil {
		ns.Shutdown()
		tb.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}

	// Executed in reverse order of registration.
	tb.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// Connect opens an additional client connection to ns, closed on cleanup.
//
// Use it to give the client and server sides of a test separate connections.
func Connect(tb testing.TB, ns *server.Server, opts ...nats.Option) *nats.Conn {
	tb.Helper()

	base := []nats.Option{
		nats.Timeout(2 * time.Second),
		nats.ReconnectWait(50 * time.Millisecond),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(ns.ClientURL(), append(base, opts...)...)
	if err != nil {
		tb.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}
	tb.Cleanup(nc.Close)

	return nc
}

// RestartableNATS is an embedded NATS server that keeps its port and store
// directory across restarts, for reconnect tests.
type RestartableNATS struct {
	tb       testing.TB
	port     int
	storeDir string

	mu     sync.Mutex
	server *server.Server
}

// StartRestartableNATS starts a server that can later be restarted with Restart.
//
// Example:
//
//	ns := livesubtest.StartRestartableNATS(t)
//	nc := livesubtest.Connect(t, ns.Server())
//	ns.Restart() // nc reconnects to the same URL
func StartRestartableNATS(tb testing.TB) *RestartableNATS {
	tb.Helper()

	r := &RestartableNATS{tb: tb, storeDir: tb.TempDir()}
	r.server = startServer(tb, -1, r.storeDir)

	addr, ok := r.server.Addr().(*net.TCPAddr)
	if !ok {
		r.server.Shutdown()
		tb.Fatalf("Unexpected NATS listener address %v", r.server.Addr())
	}
	r.port = addr.Port

	tb.Cleanup(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.server.Shutdown()
		r.server.WaitForShutdown()
	})

	return r
}

// Server returns the currently running server.
func (r *RestartableNATS) Server() *server.Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.server
}

// URL returns the client URL, stable across restarts.
func (r *RestartableNATS) URL() string {
	return fmt.Sprintf("nats://127.0.0.1:%d", r.port)
}

// Restart shuts the server down and starts a new one on the same port.
func (r *RestartableNATS) Restart() {
	r.tb.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.server.Shutdown()
	r.server.WaitForShutdown()
	r.server = startServer(r.tb, r.port, r.storeDir)
}

func startServer(tb testing.TB, port int, storeDir string) *server.Server {
	tb.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		tb.Fatalf("Failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		tb.Fatal("Embedded NATS server not ready within timeout")
	}

	return ns
}

// CreateJetStreamKV creates an in-memory KV bucket for a test.
//
// Parameters:
//   - tb: Testing context
//   - nc: NATS connection
//   - bucketName: Name of the KV bucket
//
// Returns:
//   - jetstream.KeyValue: The created bucket
func CreateJetStreamKV(tb testing.TB, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	tb.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		tb.Fatalf("Failed to get JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(tb.Context(), jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Test KV bucket: %s", bucketName),
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		tb.Fatalf("Failed to create KV bucket %s: %v", bucketName, err)
	}

	return kv
}
