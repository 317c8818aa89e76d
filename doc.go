// Package livesub provides a client-side live-query subscription layer.
//
// A Multiplexer shares one backend subscription between every listener that
// tracks the same query with structurally equal arguments, and fans each
// result out to all of them. The pagination package builds gap-free live
// pagination on top of it, and the binding package exposes both to a
// fine-grained reactive runtime.
//
// # Quick Start
//
//	cfg := livesub.DefaultConfig()
//	cfg.Transport.URL = "nats://127.0.0.1:4222"
//
//	client, err := livesub.Dial(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	l := livesub.NewListener(func(r livesub.Result) {
//	    if r.Err != nil {
//	        log.Printf("query failed: %v", r.Err)
//	        return
//	    }
//	    log.Printf("tasks: %s", r.Data)
//	})
//	unsubscribe, err := client.Multiplexer().Track(livesub.QueryRef("tasks:getAll"), nil, l)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer unsubscribe()
//
// # Identity
//
// A subscription is identified by the function name and the canonical JSON of
// its arguments, so map insertion order and struct field order never create a
// second backend subscription.
//
// # Pagination
//
// Paginated queries are loaded page by page. Each page is its own live
// subscription over a cursor range; once a later page exists the range of the
// earlier one is pinned, so items inserted or removed while the list is live
// never fall between pages or show up twice. When the backend reports that a
// page grew too large, the page is replaced in place by two smaller ones:
//
//	s, _ := pagination.NewSession(client.Multiplexer(), livesub.QueryRef("tasks:list"), nil,
//	    pagination.Options{PageSize: client.Config().PageSize})
//	s.Start()
//	defer s.Dispose()
//
// # Transport
//
// Dial speaks the natsbridge protocol over NATS. Any other backend can be used
// by implementing LiveQueryClient and passing it to NewMultiplexer.
//
// See the examples/ directory for a complete working example.
package livesub
