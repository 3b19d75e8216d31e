// Package eventlog implements the ledger's append-only domain event log.
//
// # Overview
//
// Every state-changing business action (sales, payments, inventory
// movements, shift changes) is recorded as an immutable Event with a
// strictly increasing sequence number. The Store holds the ordered
// sequence plus three indices: by event id, by aggregate id, and by
// idempotency key. All derived views are rebuilt from this log.
//
// # Idempotency
//
// Append is safe to retry verbatim. A caller-supplied key identifies one
// logical operation; the params fingerprint (pkg/stablehash) detects
// whether a retried key carries the same intent. Same key + same hash
// returns the original event (deduped); same key + different hash fails
// with IdempotencyConflictError and writes nothing. Keyless appends are
// accepted but logged as warnings, since they bypass the guarantee.
//
// # Concurrency
//
// One mutex guards the counter, the sequence and all indices for the
// duration of the check-and-insert, and is released before the audit hook
// and the fire-and-forget persistence hand-off, so backend latency never
// serializes appends. Reads take the read lock and return defensive
// copies.
//
// API surface (internal)
//
//	s := eventlog.NewStore(eventlog.Options{Registry: reg, Logger: logger})
//	res, err := s.Append("sale.recorded.v2", payload, eventlog.AppendOptions{
//		Key:       "ticket:T-1:finalize",
//		Params:    map[string]any{"total": 100},
//		Aggregate: eventlog.Aggregate{ID: "T-1", Type: "ticket"},
//	})
//	_ = res.Deduped
//
//	all := s.GetAll()
//	mine := s.GetByAggregate("T-1")
//	sales, _ := s.Query(`event_type == "sale.recorded" && at_ms > 0`)
package eventlog
