package eventlog

// GetAll returns a defensive copy of the whole log, ordered by seq
// ascending.
func (s *Store) GetAll() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.clone())
	}
	return out
}

// GetByAggregate returns the events whose aggregate id matches, in seq
// order.
func (s *Store) GetByAggregate(aggregateID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.byAgg[aggregateID]
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.clone())
	}
	return out
}

// GetByType returns the events of the given type, in seq order. The type
// is matched without any version suffix.
func (s *Store) GetByType(eventType string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev.clone())
		}
	}
	return out
}

// GetByID returns the event with the given id.
func (s *Store) GetByID(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[id]
	if !ok {
		return Event{}, false
	}
	return ev.clone(), true
}

// GetByIdempotencyKey returns the idempotency record for key. Querying an
// absent key returns ok=false, never an error.
func (s *Store) GetByIdempotencyKey(key string) (IdempotencyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[key]
	return rec, ok
}

// Len returns the number of events in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastSeq returns the highest assigned sequence number, 0 when empty.
func (s *Store) LastSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}
