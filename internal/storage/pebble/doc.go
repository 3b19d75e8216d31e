// Package pebblestore wraps a Pebble database with the durability policy
// and small helpers the persistence layer needs: batched commits with a
// configurable fsync mode, copied reads, ranged deletes, and an optional
// metrics hook for observing commit latency.
//
// The wrapper exposes raw iterators; key layout is owned by the callers
// (see internal/persist/keys.go).
package pebblestore
