package persist

import (
	"encoding/json"

	"github.com/tillroom/ledger/internal/eventlog"
)

// Record is the shape persisted by durable backends. Field names follow
// the external contract (_id, timestamp, aggregateId); translation to and
// from the in-memory Event shape happens here.
type Record struct {
	ID            string          `json:"_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Seq           uint64          `json:"seq"`
	Timestamp     int64           `json:"timestamp"`
	AggregateID   string          `json:"aggregateId,omitempty"`
	AggregateType string          `json:"aggregateType,omitempty"`
}

// FromEvent converts an in-memory event to the durable shape.
func FromEvent(e eventlog.Event) Record {
	return Record{
		ID:            e.ID,
		Type:          e.Type,
		Version:       e.Version,
		Payload:       e.Payload,
		Seq:           e.Seq,
		Timestamp:     e.At,
		AggregateID:   e.Aggregate.ID,
		AggregateType: e.Aggregate.Type,
	}
}

// ToEvent converts a durable record back to the in-memory shape. A zero
// version normalizes to 1.
func (r Record) ToEvent() eventlog.Event {
	version := r.Version
	if version < 1 {
		version = 1
	}
	return eventlog.Event{
		ID:      r.ID,
		Seq:     r.Seq,
		Type:    r.Type,
		At:      r.Timestamp,
		Version: version,
		Aggregate: eventlog.Aggregate{
			ID:   r.AggregateID,
			Type: r.AggregateType,
		},
		Payload: r.Payload,
	}
}
