// Package heartbeat provides client liveness over core NATS.
//
// A remote client publishes a heartbeat at a fixed interval. The server
// records when it last heard from each client and expires the clients that
// stayed silent for longer than the TTL, so the live queries of a crashed
// client do not stay open forever.
//
// # Design Overview
//
//   - Clients publish heartbeats at 2-second intervals
//   - The TTL is 3x the interval
//   - A client is expired after 3 missed heartbeats
//
// # Publisher Lifecycle
//
//  1. Create publisher with New(nc, subject, payload, interval)
//  2. Start publishing with Start()
//  3. Stop publishing with Stop()
//
// Example:
//
//	publisher := heartbeat.New(nc, "livesub.heartbeat", payload, 2*time.Second)
//	if err := publisher.Start(); err != nil {
//	    return err
//	}
//	defer publisher.Stop()
//
// # Monitor
//
// The Monitor is the receiving side:
//
//	monitor := heartbeat.NewMonitor(6 * time.Second)
//	monitor.Seen(clientID)            // on every heartbeat
//	for _, id := range monitor.Expired() {
//	    // release everything owned by id
//	}
//
// # Thread Safety
//
// Publisher and Monitor are safe for concurrent use.
package heartbeat
