package eventlog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program evaluated per event. An empty
// expression matches everything.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	// "type" is a reserved identifier in CEL, hence event_type.
	env, err := cel.NewEnv(
		cel.Variable("event_type", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("at_ms", cel.IntType),
		cel.Variable("version", cel.IntType),
		cel.Variable("aggregate_id", cel.StringType),
		cel.Variable("aggregate_type", cel.StringType),
		// Parsed JSON payload for field-level filtering
		cel.Variable("payload", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one event. Evaluation errors count
// as non-matches.
func (f celFilter) Eval(e *Event) bool {
	if !f.enabled {
		return true
	}
	var payload any
	_ = json.Unmarshal(e.Payload, &payload)
	out, _, err := f.prog.Eval(map[string]any{
		"event_type":     e.Type,
		"seq":            int64(e.Seq),
		"at_ms":          e.At,
		"version":        int64(e.Version),
		"aggregate_id":   e.Aggregate.ID,
		"aggregate_type": e.Aggregate.Type,
		"payload":        payload,
		"now_ms":         time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Query returns the events matching a CEL expression over
// event_type/seq/at_ms/version/aggregate_id/aggregate_type/payload, in
// seq order. An empty expression returns the whole log.
func (s *Store) Query(expr string) ([]Event, error) {
	f, err := newCELFilter(expr)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if f.Eval(ev) {
			out = append(out, ev.clone())
		}
	}
	return out, nil
}
