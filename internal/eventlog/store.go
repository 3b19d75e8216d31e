package eventlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tillroom/ledger/internal/metrics"
	"github.com/tillroom/ledger/internal/schema"
	"github.com/tillroom/ledger/pkg/id"
	"github.com/tillroom/ledger/pkg/log"
	"github.com/tillroom/ledger/pkg/stablehash"
)

// Hook receives a structured record after every successful append. It must
// never fail the append; panics are recovered by the store.
type Hook interface {
	Record(e Event)
}

// Sink receives newly created events for durable persistence. Enqueue must
// not block; delivery is best-effort by contract.
type Sink interface {
	Enqueue(e Event)
}

// Options configures a Store.
type Options struct {
	// Registry validates payloads and reports unknown types. Nil disables
	// validation entirely.
	Registry *schema.Registry
	// Logger receives warnings and debug output. Defaults to a nop logger.
	Logger log.Logger
	// Hook is the audit side-channel. Optional.
	Hook Hook
	// Sink is the persistence bridge hand-off. Optional.
	Sink Sink
	// Metrics observes append outcomes. Optional.
	Metrics *metrics.Metrics
	// RequireKey rejects appends without an idempotency key instead of
	// accepting them with a warning.
	RequireKey bool
	// AwaitHydration gates Append until MarkHydrated is called. Set when a
	// durable backend will replay history into the store at startup.
	AwaitHydration bool
}

// Store is the authoritative append-only sequence and its indices.
// A single Store instance is the one source of truth for a process;
// construct it once and inject it into consumers.
type Store struct {
	registry   *schema.Registry
	logger     log.Logger
	hook       Hook
	sink       Sink
	metrics    *metrics.Metrics
	requireKey bool
	ids        *id.Generator

	// unkeyedWarn throttles the repeated warning for keyless appends so a
	// misbehaving caller cannot flood the log.
	unkeyedWarn *rate.Limiter

	mu       sync.RWMutex
	hydrated bool
	warm     bool
	seq      uint64
	events   []*Event
	byID     map[string]*Event
	byAgg    map[string][]*Event
	byKey    map[string]IdempotencyRecord
}

// nowMs is swappable in tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// NewStore constructs an empty (cold) Store.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		registry:    opts.Registry,
		logger:      logger.With(log.Component("eventlog")),
		hook:        opts.Hook,
		sink:        opts.Sink,
		metrics:     opts.Metrics,
		requireKey:  opts.RequireKey,
		ids:         id.NewGenerator(),
		unkeyedWarn: rate.NewLimiter(rate.Every(time.Second), 5),
		hydrated:    !opts.AwaitHydration,
		byID:        map[string]*Event{},
		byAgg:       map[string][]*Event{},
		byKey:       map[string]IdempotencyRecord{},
	}
}

// State reports the lifecycle state: cold until the first successful
// append, ingest or hydration.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.warm {
		return StateWarm
	}
	return StateCold
}

// MarkHydrated opens the store for appends after startup replay. Called by
// the persistence bridge once hydration completed. A completed hydration
// warms the store even when the backend held no events.
func (s *Store) MarkHydrated() {
	s.mu.Lock()
	s.hydrated = true
	s.warm = true
	s.mu.Unlock()
}

// Append records a business fact. Same key + same params returns the
// original event with Deduped set; same key + different params fails with
// *IdempotencyConflictError and writes nothing. Registered payload types
// are validated first; unknown types pass through with a warning.
func (s *Store) Append(eventType string, payload any, opts AppendOptions) (AppendResult, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return AppendResult{}, fmt.Errorf("eventlog: marshal payload: %w", err)
	}
	typ, version := schema.TypeVersion(eventType)

	if s.registry != nil {
		if err := s.registry.Validate(eventType, version, raw); err != nil {
			s.metrics.IncAppend("invalid")
			return AppendResult{}, err
		}
		if !s.registry.Known(eventType) {
			s.logger.Warn("append of unregistered event type; payload accepted as pass-through",
				log.Str("type", typ))
		}
	}

	if opts.Key == "" {
		if s.requireKey {
			s.metrics.IncAppend("rejected")
			return AppendResult{}, ErrKeyRequired
		}
		s.metrics.IncUnkeyedAppend()
		if s.unkeyedWarn.Allow() {
			s.logger.Warn("append without idempotency key; retry safety disabled for this call",
				log.Str("type", typ))
		}
	}

	// Fingerprint before taking the lock; hashing is pure.
	paramsHash := stablehash.Hash(opts.Params)

	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return AppendResult{}, ErrNotHydrated
	}
	if opts.Key != "" {
		if rec, ok := s.byKey[opts.Key]; ok {
			prior := s.byID[rec.EventID]
			if rec.ParamsHash == paramsHash {
				out := prior.clone()
				s.mu.Unlock()
				s.metrics.IncAppend("deduped")
				s.logger.Debug("append deduped",
					log.Str("key", opts.Key), log.Uint64("seq", out.Seq))
				return AppendResult{Event: out, IsNew: false, Deduped: true}, nil
			}
			want := rec.ParamsHash
			s.mu.Unlock()
			s.metrics.IncAppend("conflict")
			return AppendResult{}, &IdempotencyConflictError{
				Code:     IdempotencyConflictCode,
				Key:      opts.Key,
				GotHash:  paramsHash,
				WantHash: want,
			}
		}
	}

	s.seq++
	ev := &Event{
		ID:        s.ids.Next().String(),
		Seq:       s.seq,
		Type:      typ,
		At:        nowMs(),
		Version:   version,
		Aggregate: opts.Aggregate,
		Payload:   raw,
	}
	s.events = append(s.events, ev)
	s.byID[ev.ID] = ev
	if ev.Aggregate.ID != "" {
		s.byAgg[ev.Aggregate.ID] = append(s.byAgg[ev.Aggregate.ID], ev)
	}
	if opts.Key != "" {
		s.byKey[opts.Key] = IdempotencyRecord{Key: opts.Key, EventID: ev.ID, ParamsHash: paramsHash}
	}
	s.warm = true
	count := len(s.events)
	out := ev.clone()
	s.mu.Unlock()

	s.metrics.IncAppend("created")
	s.metrics.SetEvents(count)
	s.fireHook(out)
	if s.sink != nil {
		s.sink.Enqueue(out)
	}
	return AppendResult{Event: out, IsNew: true, Deduped: false}, nil
}

// Ingest inserts a fully formed event with pre-assigned id and seq,
// bypassing the idempotency guard. Used by the hydration path. Duplicate
// ids no-op; the sequence counter advances to cover the ingested seq so
// later appends continue the same total order.
func (s *Store) Ingest(e Event) error {
	if s.registry != nil {
		typ := e.Type
		if e.Version > 1 {
			typ = fmt.Sprintf("%s.v%d", e.Type, e.Version)
		}
		if err := s.registry.Validate(typ, e.Version, e.Payload); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; ok {
		return nil
	}
	ev := e.clone()
	s.insertOrdered(&ev)
	s.byID[ev.ID] = &ev
	if ev.Aggregate.ID != "" {
		s.byAgg[ev.Aggregate.ID] = append(s.byAgg[ev.Aggregate.ID], &ev)
	}
	if ev.Seq > s.seq {
		s.seq = ev.Seq
	}
	s.warm = true
	s.metrics.SetEvents(len(s.events))
	return nil
}

// insertOrdered keeps s.events sorted by seq. Hydration feeds ascending
// order, so the common case is a plain append.
func (s *Store) insertOrdered(ev *Event) {
	n := len(s.events)
	if n == 0 || s.events[n-1].Seq <= ev.Seq {
		s.events = append(s.events, ev)
		return
	}
	i := n
	for i > 0 && s.events[i-1].Seq > ev.Seq {
		i--
	}
	s.events = append(s.events, nil)
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
}

// Reset clears the sequence counter, the ordered log and all indices.
// Synchronous, total and irreversible.
func (s *Store) Reset() {
	s.mu.Lock()
	s.seq = 0
	s.events = nil
	s.byID = map[string]*Event{}
	s.byAgg = map[string][]*Event{}
	s.byKey = map[string]IdempotencyRecord{}
	s.mu.Unlock()
	s.metrics.SetEvents(0)
	s.logger.Info("event log reset")
}

func (s *Store) fireHook(e Event) {
	if s.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit hook panicked", log.Any("panic", r), log.Str("event_id", e.ID))
		}
	}()
	s.hook.Record(e)
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return append(json.RawMessage(nil), p...), nil
	case []byte:
		return append(json.RawMessage(nil), p...), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return b, nil
}
