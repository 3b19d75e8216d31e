package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/pkg/log"
)

type capturedLine struct {
	msg    string
	fields map[string]any
}

type captureLogger struct {
	lines []capturedLine
	bound []log.Field
}

func (c *captureLogger) log(msg string, fields []log.Field) {
	m := map[string]any{}
	for _, f := range append(c.bound, fields...) {
		m[f.Key] = f.Value
	}
	c.lines = append(c.lines, capturedLine{msg: msg, fields: m})
}

func (c *captureLogger) Debug(msg string, fields ...log.Field) { c.log(msg, fields) }
func (c *captureLogger) Info(msg string, fields ...log.Field)  { c.log(msg, fields) }
func (c *captureLogger) Warn(msg string, fields ...log.Field)  { c.log(msg, fields) }
func (c *captureLogger) Error(msg string, fields ...log.Field) { c.log(msg, fields) }
func (c *captureLogger) With(fields ...log.Field) log.Logger {
	c.bound = append(c.bound, fields...)
	return c
}
func (c *captureLogger) SetLevel(log.Level) {}

func sampleEvent() eventlog.Event {
	return eventlog.Event{
		ID: "ev-1", Seq: 7, Type: "sale.recorded", At: 1234, Version: 2,
		Aggregate: eventlog.Aggregate{ID: "T-9", Type: "ticket"},
		Payload:   json.RawMessage(`{"ticketId":"T-9","totalCents":500,"currency":"EUR"}`),
	}
}

func TestLoggerHookEmitsOneLinePerEvent(t *testing.T) {
	cl := &captureLogger{}
	h := NewLoggerHook(cl)

	h.Record(sampleEvent())
	require.Len(t, cl.lines, 1)

	line := cl.lines[0]
	require.Equal(t, "event recorded", line.msg)
	require.Equal(t, "ev-1", line.fields["event_id"])
	require.Equal(t, uint64(7), line.fields["seq"])
	require.Equal(t, "sale.recorded", line.fields["event_type"])
	require.Equal(t, 2, line.fields["version"])
	require.Equal(t, int64(1234), line.fields["event_at_ms"])
	require.Equal(t, "T-9", line.fields["aggregate_id"])
	require.Equal(t, "ticket", line.fields["aggregate_type"])
	require.Equal(t, "audit", line.fields["component"])
}

func TestEntryHasOwnIdentityAndClock(t *testing.T) {
	restore := nowMs
	nowMs = func() int64 { return 9999 }
	defer func() { nowMs = restore }()

	a := NewEntry(sampleEvent())
	b := NewEntry(sampleEvent())

	require.NotEmpty(t, a.AuditID)
	require.NotEqual(t, a.AuditID, b.AuditID, "each trail entry gets a fresh id")
	require.EqualValues(t, 9999, a.RecordedAt)
	require.EqualValues(t, 1234, a.EventAt, "business time stays separate from recording time")
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := NewLoggerHook(nil)
	require.NotPanics(t, func() { h.Record(sampleEvent()) })
}
