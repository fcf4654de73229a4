// Package state implements the named-channel execution state shared by all
// node handlers. Each channel pairs a default value with a reducer that
// merges an incoming update into the current value: the transcript appends,
// scalar channels take the last write, and per-node output records merge
// shallowly by node id.
//
// Handlers read [Snapshot] copies and commit effects only through the
// [Update] they return, so concurrent handlers in one scheduler level never
// contend and a cancelled handler whose update is discarded leaves no trace.
package state
