// Package pipekit provides a streaming, thread-parallel pipeline stage
// abstraction for in-process dataflow graphs.
//
// # Architecture
//
// The unit of composition is the Block: it clones a Task (an opaque unit of
// computation with named, typed endpoints) once per worker thread and drives
// every replica through a pull -> compute -> push loop. Data moves between
// replicas and between blocks through buffered sockets: fixed-capacity,
// type-erased ring buffers that apply backpressure instead of growing or
// dropping.
//
// Packages:
//
//   - task: datatype tags, endpoint descriptors, and the Task collaborator
//     interface with helpers for building simple tasks.
//   - socket: the bounded typed channel ("buffered socket") with a closed
//     dispatch over the six supported numeric datatypes.
//   - block: the pipeline stage owning replicas, sockets, and the worker
//     loop; supports binding one block's output to another block's input.
//   - pipeline: an orchestrator wiring blocks into a validated directed
//     graph and running them against one shared stop flag.
//   - registry: named Task factories for config-driven construction.
//   - config: declarative YAML pipeline topologies.
//   - errors: classified error handling shared by all packages.
//   - metric: Prometheus metrics registry; metrics are opt-in everywhere.
//
// # Concurrency model
//
// One goroutine per replica, no cooperative scheduler. Sockets are the only
// shared mutable state between replicas; pop and push are non-blocking and
// the surrounding loops spin-retry while polling a single externally owned
// atomic stop flag. Raising that flag is the only cancellation mechanism and
// drains the whole graph.
package pipekit
