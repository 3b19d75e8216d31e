package eventlog

import "encoding/json"

// Aggregate identifies the business entity an event pertains to. Used for
// indexing and filtering only; the store holds no aggregate snapshots.
type Aggregate struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Event is the atomic, immutable fact. Once appended it is never mutated
// or removed except by a full Reset.
type Event struct {
	// ID is globally unique, assigned at creation, never reused.
	ID string `json:"id"`
	// Seq is the strictly increasing sequence number assigned at append
	// time; the total order over the log.
	Seq uint64 `json:"seq"`
	// Type is the namespaced business fact name ("sale.recorded", ...),
	// without any version suffix.
	Type string `json:"type"`
	// At is the wall-clock append time in epoch milliseconds. Not used for
	// ordering; that is Seq's job.
	At int64 `json:"at"`
	// Version is the payload schema version. 1 when the caller supplied no
	// suffix.
	Version int `json:"version,omitempty"`
	// Aggregate is the entity this event is about.
	Aggregate Aggregate `json:"aggregate"`
	// Payload is the typed, versionable body specific to Type.
	Payload json.RawMessage `json:"payload"`
}

// clone returns a deep copy safe to hand to callers.
func (e *Event) clone() Event {
	out := *e
	if e.Payload != nil {
		out.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return out
}

// IdempotencyRecord ties a caller-supplied key to the event it produced
// and the fingerprint of the parameters it was produced with. Created at
// most once per key, never updated in place.
type IdempotencyRecord struct {
	Key        string `json:"key"`
	EventID    string `json:"eventId"`
	ParamsHash string `json:"paramsHash"`
}

// AppendOptions carries the optional parts of an append call.
type AppendOptions struct {
	// Key is the idempotency key for this logical operation, e.g.
	// "ticket:T-123:finalize". Empty disables the idempotency guard for
	// this call.
	Key string
	// Params is the operation input fingerprinted to detect conflicting
	// retries under the same key.
	Params any
	// Aggregate indexes the event under a business entity.
	Aggregate Aggregate
}

// AppendResult reports what an append did.
type AppendResult struct {
	// Event is a copy of the stored event (the original one when deduped).
	Event Event
	// IsNew is true when a new event was created.
	IsNew bool
	// Deduped is true when the call was recognized as a retry and the
	// original event was returned instead.
	Deduped bool
}

// State is the lifecycle state of a Store.
type State int

const (
	// StateCold is a freshly constructed store: sequence zero, empty.
	StateCold State = iota
	// StateWarm is reached on the first successful append, ingest or
	// hydration and lasts for the process lifetime.
	StateWarm
)

func (s State) String() string {
	if s == StateCold {
		return "cold"
	}
	return "warm"
}
