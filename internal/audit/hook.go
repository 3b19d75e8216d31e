package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/pkg/log"
)

// Entry is one audit trail line. AuditID identifies the trail entry
// itself; RecordedAt is the wall clock at emission, distinct from the
// event's business timestamp.
type Entry struct {
	AuditID       string `json:"auditId"`
	RecordedAt    int64  `json:"recordedAtMs"`
	EventID       string `json:"eventId"`
	Seq           uint64 `json:"seq"`
	EventType     string `json:"eventType"`
	Version       int    `json:"version"`
	EventAt       int64  `json:"eventAtMs"`
	AggregateID   string `json:"aggregateId"`
	AggregateType string `json:"aggregateType"`
}

// nowMs is swapped in tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// LoggerHook writes each audit entry as a structured log line. It
// implements eventlog.Hook.
type LoggerHook struct {
	logger log.Logger
}

var _ eventlog.Hook = (*LoggerHook)(nil)

// NewLoggerHook returns a hook emitting to logger at info level.
func NewLoggerHook(logger log.Logger) *LoggerHook {
	if logger == nil {
		logger = log.NewNop()
	}
	return &LoggerHook{logger: logger.With(log.Component("audit"))}
}

// Record implements eventlog.Hook. It fires once per accepted event;
// deduplicated replays do not reach it.
func (h *LoggerHook) Record(e eventlog.Event) {
	entry := NewEntry(e)
	h.logger.Info("event recorded",
		log.Str("audit_id", entry.AuditID),
		log.Int64("recorded_at_ms", entry.RecordedAt),
		log.Str("event_id", entry.EventID),
		log.Uint64("seq", entry.Seq),
		log.Str("event_type", entry.EventType),
		log.Int("version", entry.Version),
		log.Int64("event_at_ms", entry.EventAt),
		log.Str("aggregate_id", entry.AggregateID),
		log.Str("aggregate_type", entry.AggregateType),
	)
}

// NewEntry builds the audit entry for an accepted event.
func NewEntry(e eventlog.Event) Entry {
	return Entry{
		AuditID:       uuid.NewString(),
		RecordedAt:    nowMs(),
		EventID:       e.ID,
		Seq:           e.Seq,
		EventType:     e.Type,
		Version:       e.Version,
		EventAt:       e.At,
		AggregateID:   e.Aggregate.ID,
		AggregateType: e.Aggregate.Type,
	}
}
