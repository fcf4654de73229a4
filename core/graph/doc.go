// Package graph holds the authored graph model shared by the compiler and
// both schedulers: node and edge data structures, derived adjacency, cycle
// detection via Kahn's algorithm, topological leveling, and reachability.
//
// Everything in this package is pure and synchronous: no I/O, no shared
// mutable state. The one policy decision it owns is [ValidateRunnable], the
// pre-flight gate a user-authored workflow graph must pass before the static
// scheduler will touch it.
package graph
