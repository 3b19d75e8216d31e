// Package persist bridges the in-memory event log to durable storage.
//
// The Adapter contract is narrow: put one record, read all records,
// reset. Adapters exist for Pebble (embedded), Redis and PostgreSQL,
// plus an in-memory adapter for tests and ephemeral runs. Field-name
// translation between the durable record shape (timestamp, aggregateId,
// _id) and the in-memory Event shape is owned here, never by the log.
//
// The Bridge mirrors log writes to the adapter through a bounded queue
// drained by a single background writer. Writes are best-effort: the
// in-memory log is the durability floor, a failed or dropped durable
// write never rolls back an append, and nothing is retried automatically.
// Hydrate is the opposite path: replay all durable records into the log
// at startup, migrating legacy payload versions, before any new append is
// accepted. A hydration failure aborts startup rather than leaving a
// partially replayed log in service.
package persist
