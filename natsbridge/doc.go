// Package natsbridge carries live queries and mutations over NATS.
//
// Server exposes a backend.Server on three subjects under a configurable
// prefix; Client implements types.LiveQueryClient against them.
//
//	<prefix>.subscribe    publish  {id, function, args, inbox}
//	<prefix>.unsubscribe  publish  {id}
//	<prefix>.mutate       request  {function, args} -> {value} | {error}
//	<prefix>.heartbeat    publish  {client}
//
// Every result of a live query is published to the subscription's inbox as
// {seq, value} or {seq, error}. The client re-sends its live subscribe requests
// after a NATS reconnect; the server replaces a subscription whose id it
// already knows. Clients publish a heartbeat every interval; the server
// cancels the subscriptions of a client it has not heard from for three
// intervals.
package natsbridge
