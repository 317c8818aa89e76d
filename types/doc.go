// Package types provides core type definitions and interfaces for the livesub library.
//
// This package contains the values and contracts shared by the multiplexer, the
// pagination engine, the reactive bindings and the transports. Keeping them in a
// leaf package avoids import cycles between the root livesub package and its
// sub-packages.
//
// Key types:
//   - FunctionReference: named backend query or mutation
//   - Identity: canonical key of a (query, args) pair
//   - Listener / Result: fan-out callback and its payload
//   - LiveQueryClient: backend transport contract
//   - ReactiveRuntime / Signal: host reactivity contract
//   - PaginationOptions / PaginationResult: backend pagination protocol
//   - Logger, MetricsCollector, Hooks: ambient observability contracts
package types
