package persist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillroom/ledger/internal/eventlog"
)

func TestFromEventToEventRoundTrip(t *testing.T) {
	e := eventlog.Event{
		ID:        "e-1",
		Seq:       42,
		Type:      "sale.recorded",
		At:        1700000000000,
		Version:   2,
		Aggregate: eventlog.Aggregate{ID: "T-1", Type: "ticket"},
		Payload:   json.RawMessage(`{"ticketId":"T-1","totalCents":100,"currency":"USD"}`),
	}
	rec := FromEvent(e)
	require.Equal(t, e.At, rec.Timestamp, "at translates to timestamp")
	require.Equal(t, e.Aggregate.ID, rec.AggregateID)

	back := rec.ToEvent()
	require.Equal(t, e, back)
}

func TestToEventNormalizesVersion(t *testing.T) {
	rec := Record{ID: "e-2", Seq: 1, Type: "x", Timestamp: 5}
	require.Equal(t, 1, rec.ToEvent().Version)
}

func TestRecordExternalFieldNames(t *testing.T) {
	rec := FromEvent(eventlog.Event{ID: "e-3", Seq: 1, Type: "x", At: 9,
		Aggregate: eventlog.Aggregate{ID: "A", Type: "item"}})
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Contains(t, m, "_id")
	require.Contains(t, m, "timestamp")
	require.Contains(t, m, "aggregateId")
	require.NotContains(t, m, "at")
}
