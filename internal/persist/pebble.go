package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/tillroom/ledger/internal/storage/pebble"
)

// PebbleAdapter persists records in an embedded Pebble database. It does
// not own the DB handle; the runtime opens and closes it.
type PebbleAdapter struct {
	db *pebblestore.DB
}

// NewPebbleAdapter wraps an open store.
func NewPebbleAdapter(db *pebblestore.DB) *PebbleAdapter {
	return &PebbleAdapter{db: db}
}

// PutEvent implements Adapter.
func (a *PebbleAdapter) PutEvent(_ context.Context, rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pebble adapter: marshal record: %w", err)
	}
	return a.db.Set(keyEvent(rec.Seq), val)
}

// AllEvents implements Adapter. Records come back in seq order because
// keys embed the sequence big-endian.
func (a *PebbleAdapter) AllEvents(_ context.Context) ([]Record, error) {
	low, high := keyEventRange()
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("pebble adapter: decode record at %x: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Reset implements Adapter.
func (a *PebbleAdapter) Reset(_ context.Context) error {
	low, high := keyEventRange()
	return a.db.DeleteRange(low, high)
}

// Close implements Adapter. The DB handle is shared and closed by its
// owner.
func (a *PebbleAdapter) Close() error { return nil }
