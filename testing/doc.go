// Package testing provides test utilities for the livesub library.
//
// It follows the convention of net/http/httptest: helpers that production code
// never imports but that tests of livesub and of its users need.
//
// Key utilities:
//   - StartEmbeddedNATS: single in-process NATS server with JetStream
//   - StartRestartableNATS: NATS server that can be restarted on the same port
//   - CreateJetStreamKV: convenience wrapper for KV bucket creation
//   - FakeClient: scriptable types.LiveQueryClient
//   - NewTestLogger: types.Logger writing through t.Logf
//
// Example usage:
//
//	import (
//	    "testing"
//	    livesubtest "github.com/arloliu/livesub/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    client := livesubtest.NewFakeClient()
//	    mux, _ := livesub.NewMultiplexer(client)
//	    // track queries, then drive updates with client.Push
//	}
package testing
