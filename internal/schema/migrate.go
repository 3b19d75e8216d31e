package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// registerMigrations wires the built-in upgrade chains. Each function is
// pure: same input payload, same output payload.
func (r *Registry) registerMigrations() {
	r.addMigration("sale.recorded", 1, migrateSaleRecordedV1V2)
}

func (r *Registry) addMigration(typ string, fromVersion int, fn migrateFunc) {
	if r.migrate[typ] == nil {
		r.migrate[typ] = map[int]migrateFunc{}
	}
	r.migrate[typ][fromVersion] = fn
}

// Migrate upgrades payload from the given version to the latest registered
// version for the type, applying each step in order. Payloads already at
// the latest version (and unregistered types) come back unchanged.
func (r *Registry) Migrate(eventType string, version int, payload json.RawMessage) (int, json.RawMessage, error) {
	typ, suffixV := TypeVersion(eventType)
	if version < 1 {
		version = suffixV
	}
	target, ok := r.latest[typ]
	if !ok || version >= target {
		return version, payload, nil
	}
	for v := version; v < target; v++ {
		fn, ok := r.migrate[typ][v]
		if !ok {
			return version, payload, fmt.Errorf("schema: no migration for %s v%d -> v%d", typ, v, v+1)
		}
		next, err := fn(payload)
		if err != nil {
			return version, payload, fmt.Errorf("schema: migrate %s v%d: %w", typ, v, err)
		}
		payload = next
	}
	return target, payload, nil
}

// migrateSaleRecordedV1V2 converts dollar-denominated totals to integer
// cents and stamps an explicit currency. Line items keep unknown fields.
func migrateSaleRecordedV1V2(payload json.RawMessage) (json.RawMessage, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	if total, ok := m["total"].(float64); ok {
		m["totalCents"] = int64(math.Round(total * 100))
		delete(m, "total")
	}
	if _, ok := m["currency"]; !ok {
		m["currency"] = "USD"
	}
	if items, ok := m["items"].([]any); ok {
		for _, it := range items {
			line, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if price, ok := line["price"].(float64); ok {
				line["priceCents"] = int64(math.Round(price * 100))
				delete(line, "price")
			}
		}
	}
	return json.Marshal(m)
}
