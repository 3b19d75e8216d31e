package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError reports a payload that failed its registered contract.
type ValidationError struct {
	EventType string
	Version   int
	Issues    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: %s v%d invalid: %s", e.EventType, e.Version, strings.Join(e.Issues, "; "))
}

// TypeVersion splits a trailing ".vN" suffix off an event type name.
// "sale.recorded.v2" yields ("sale.recorded", 2); a bare type defaults
// to version 1.
func TypeVersion(eventType string) (string, int) {
	i := strings.LastIndex(eventType, ".v")
	if i <= 0 {
		return eventType, 1
	}
	n, err := strconv.Atoi(eventType[i+2:])
	if err != nil || n < 1 {
		return eventType, 1
	}
	return eventType[:i], n
}

// Registry holds compiled contracts and migration chains per event type.
type Registry struct {
	compiled map[string]map[int]*jsonschema.Schema
	latest   map[string]int
	migrate  map[string]map[int]migrateFunc
}

// migrateFunc upgrades a payload from one version to the next.
type migrateFunc func(payload json.RawMessage) (json.RawMessage, error)

// NewRegistry compiles the embedded contracts and registers the built-in
// migration chains.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		compiled: map[string]map[int]*jsonschema.Schema{},
		latest:   map[string]int{},
		migrate:  map[string]map[int]migrateFunc{},
	}

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	// Sort for deterministic compile order; not load-bearing but keeps
	// compile errors stable.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	compiler := jsonschema.NewCompiler()
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema: add %s: %w", name, err)
		}
	}
	for _, name := range names {
		typ, version := parseSchemaFile(name)
		if typ == "" {
			return nil, fmt.Errorf("schema: unparseable schema file name %q", name)
		}
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("schema: compile %s: %w", name, err)
		}
		if r.compiled[typ] == nil {
			r.compiled[typ] = map[int]*jsonschema.Schema{}
		}
		r.compiled[typ][version] = s
		if version > r.latest[typ] {
			r.latest[typ] = version
		}
	}

	r.registerMigrations()
	return r, nil
}

// parseSchemaFile splits "sale.recorded.v2.json" into ("sale.recorded", 2).
func parseSchemaFile(name string) (string, int) {
	base := strings.TrimSuffix(name, ".json")
	typ, v := TypeVersion(base)
	if typ == base {
		return "", 0
	}
	return typ, v
}

// Types returns the registered event types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.compiled))
	for typ := range r.compiled {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Known reports whether a contract is registered for the event type.
func (r *Registry) Known(eventType string) bool {
	typ, _ := TypeVersion(eventType)
	_, ok := r.compiled[typ]
	return ok
}

// LatestVersion returns the newest registered version for the type, or 1
// for unregistered types.
func (r *Registry) LatestVersion(eventType string) int {
	typ, _ := TypeVersion(eventType)
	if v, ok := r.latest[typ]; ok {
		return v
	}
	return 1
}

// Validate checks payload against the contract for (eventType, version).
// Unregistered types pass; the caller decides whether to warn. Registered
// types with an unregistered version fail.
func (r *Registry) Validate(eventType string, version int, payload json.RawMessage) error {
	typ, suffixV := TypeVersion(eventType)
	if version < 1 {
		version = suffixV
	}
	versions, ok := r.compiled[typ]
	if !ok {
		return nil
	}
	s, ok := versions[version]
	if !ok {
		return &ValidationError{EventType: typ, Version: version, Issues: []string{fmt.Sprintf("no contract registered for version %d", version)}}
	}

	var instance any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &instance); err != nil {
			return &ValidationError{EventType: typ, Version: version, Issues: []string{"payload is not valid JSON: " + err.Error()}}
		}
	}
	if err := s.Validate(instance); err != nil {
		ve := &ValidationError{EventType: typ, Version: version}
		if jerr, ok := err.(*jsonschema.ValidationError); ok {
			ve.Issues = flattenIssues(jerr)
		} else {
			ve.Issues = []string{err.Error()}
		}
		return ve
	}
	return nil
}

// flattenIssues collects leaf causes into one message per violation.
func flattenIssues(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + err.Message}
	}
	var out []string
	for _, c := range err.Causes {
		out = append(out, flattenIssues(c)...)
	}
	return out
}
