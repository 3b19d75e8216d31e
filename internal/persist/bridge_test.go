package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/internal/schema"
)

type failingAdapter struct {
	*MemoryAdapter
	failPut bool
	failAll bool
}

func (f *failingAdapter) PutEvent(ctx context.Context, rec Record) error {
	if f.failPut {
		return errors.New("backend down")
	}
	return f.MemoryAdapter.PutEvent(ctx, rec)
}

func (f *failingAdapter) AllEvents(ctx context.Context) ([]Record, error) {
	if f.failAll {
		return nil, errors.New("backend down")
	}
	return f.MemoryAdapter.AllEvents(ctx)
}

type blockingAdapter struct {
	*MemoryAdapter
	release chan struct{}
}

func (b *blockingAdapter) PutEvent(ctx context.Context, rec Record) error {
	<-b.release
	return b.MemoryAdapter.PutEvent(ctx, rec)
}

func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry()
	require.NoError(t, err)
	return r
}

func testEvent(id string, seq uint64) eventlog.Event {
	return eventlog.Event{
		ID: id, Seq: seq, Type: "shift.opened", At: int64(seq), Version: 1,
		Aggregate: eventlog.Aggregate{ID: "S-1", Type: "shift"},
		Payload:   json.RawMessage(`{"shiftId":"S-1","cashierId":"C-1"}`),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEnqueueWritesThrough(t *testing.T) {
	mem := NewMemoryAdapter()
	b := NewBridge(mem, BridgeOptions{})
	defer b.Close()

	b.Enqueue(testEvent("e-1", 1))
	waitFor(t, func() bool {
		recs, err := mem.AllEvents(context.Background())
		return err == nil && len(recs) == 1
	})
	recs, err := mem.AllEvents(context.Background())
	require.NoError(t, err)
	require.Equal(t, "e-1", recs[0].ID)
	require.EqualValues(t, 1, recs[0].Timestamp)
}

func TestCloseDrainsQueue(t *testing.T) {
	mem := NewMemoryAdapter()
	b := NewBridge(mem, BridgeOptions{})
	for i := uint64(1); i <= 20; i++ {
		b.Enqueue(testEvent(string(rune('a'+i)), i))
	}
	require.NoError(t, b.Close())

	recs, err := mem.AllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 20)
}

func TestPutFailureIsNonFatal(t *testing.T) {
	f := &failingAdapter{MemoryAdapter: NewMemoryAdapter(), failPut: true}
	b := NewBridge(f, BridgeOptions{})
	b.Enqueue(testEvent("e-1", 1))
	require.NoError(t, b.Close(), "close must succeed despite failing writes")
}

func TestQueueOverflowDropsInsteadOfBlocking(t *testing.T) {
	blocked := &blockingAdapter{MemoryAdapter: NewMemoryAdapter(), release: make(chan struct{})}
	b := NewBridge(blocked, BridgeOptions{QueueSize: 1})

	done := make(chan struct{})
	go func() {
		// First event occupies the writer, second fills the queue, the
		// rest must drop without blocking.
		for i := uint64(1); i <= 10; i++ {
			b.Enqueue(testEvent(string(rune('a'+i)), i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	close(blocked.release)
	require.NoError(t, b.Close())
}

func TestHydrateReplaysInOrder(t *testing.T) {
	mem := NewMemoryAdapter()
	// Insert out of order; hydration must sort by seq.
	for _, seq := range []uint64{3, 1, 2} {
		require.NoError(t, mem.PutEvent(context.Background(), FromEvent(testEvent("e-"+string(rune('0'+seq)), seq))))
	}
	b := NewBridge(mem, BridgeOptions{Registry: newTestRegistry(t)})
	defer b.Close()

	store := eventlog.NewStore(eventlog.Options{Registry: newTestRegistry(t), AwaitHydration: true})
	n, err := b.Hydrate(context.Background(), store)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, uint64(3), store.LastSeq())

	all := store.GetAll()
	for i, ev := range all {
		require.Equal(t, uint64(i+1), ev.Seq)
	}

	// New appends continue the durable order.
	res, err := store.Append("shift.opened", json.RawMessage(`{"shiftId":"S-2","cashierId":"C-1"}`), eventlog.AppendOptions{Key: "s2"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), res.Event.Seq)
}

func TestHydrateIdempotent(t *testing.T) {
	mem := NewMemoryAdapter()
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, mem.PutEvent(context.Background(), FromEvent(testEvent("e-"+string(rune('0'+seq)), seq))))
	}
	b := NewBridge(mem, BridgeOptions{Registry: newTestRegistry(t)})
	defer b.Close()

	store := eventlog.NewStore(eventlog.Options{Registry: newTestRegistry(t), AwaitHydration: true})
	n1, err := b.Hydrate(context.Background(), store)
	require.NoError(t, err)
	n2, err := b.Hydrate(context.Background(), store)
	require.NoError(t, err)

	require.Equal(t, n1, n2)
	require.Equal(t, 5, store.Len(), "second hydration must not duplicate events")
	require.Equal(t, uint64(5), store.LastSeq())
}

func TestHydrateFailsLoudly(t *testing.T) {
	f := &failingAdapter{MemoryAdapter: NewMemoryAdapter(), failAll: true}
	b := NewBridge(f, BridgeOptions{})
	defer b.Close()

	store := eventlog.NewStore(eventlog.Options{AwaitHydration: true})
	_, err := b.Hydrate(context.Background(), store)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	// The gate stays shut after a failed hydration.
	_, err = store.Append("shift.opened", json.RawMessage(`{"shiftId":"S-1","cashierId":"C-1"}`), eventlog.AppendOptions{Key: "k"})
	require.ErrorIs(t, err, eventlog.ErrNotHydrated)
}

func TestHydrateMigratesLegacyPayloads(t *testing.T) {
	mem := NewMemoryAdapter()
	legacy := Record{
		ID: "e-1", Seq: 1, Type: "sale.recorded", Version: 1, Timestamp: 10,
		AggregateID: "T-1", AggregateType: "ticket",
		Payload: json.RawMessage(`{"ticketId":"T-1","total":12.5}`),
	}
	require.NoError(t, mem.PutEvent(context.Background(), legacy))

	reg := newTestRegistry(t)
	b := NewBridge(mem, BridgeOptions{Registry: reg})
	defer b.Close()

	store := eventlog.NewStore(eventlog.Options{Registry: reg, AwaitHydration: true})
	_, err := b.Hydrate(context.Background(), store)
	require.NoError(t, err)

	all := store.GetAll()
	require.Len(t, all, 1)
	require.Equal(t, 2, all[0].Version, "legacy payload must be upgraded")

	var p schema.SaleRecorded
	require.NoError(t, json.Unmarshal(all[0].Payload, &p))
	require.EqualValues(t, 1250, p.TotalCents)
	require.Equal(t, "USD", p.Currency)
}

func TestResetWaitsForInFlightWrite(t *testing.T) {
	blocked := &blockingAdapter{MemoryAdapter: NewMemoryAdapter(), release: make(chan struct{})}
	b := NewBridge(blocked, BridgeOptions{})

	// The writer picks this up and blocks inside PutEvent.
	b.Enqueue(testEvent("e-1", 1))
	waitFor(t, func() bool { return len(b.ch) == 0 })

	resetDone := make(chan error, 1)
	go func() { resetDone <- b.Reset(context.Background()) }()

	// Reset must not run ahead of the in-flight write.
	select {
	case err := <-resetDone:
		t.Fatalf("reset finished before the in-flight write: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(blocked.release)
	require.NoError(t, <-resetDone)

	recs, err := blocked.MemoryAdapter.AllEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs, "the write that was in flight must not survive the reset")
	require.NoError(t, b.Close())
}

func TestResetMirrors(t *testing.T) {
	mem := NewMemoryAdapter()
	require.NoError(t, mem.PutEvent(context.Background(), FromEvent(testEvent("e-1", 1))))
	b := NewBridge(mem, BridgeOptions{})
	defer b.Close()

	require.NoError(t, b.Reset(context.Background()))
	recs, err := mem.AllEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}
