package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pebblestore "github.com/tillroom/ledger/internal/storage/pebble"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	require.NoError(t, err)
	return db
}

func TestPebbleAdapterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir)

	a := NewPebbleAdapter(db)
	for _, seq := range []uint64{2, 1, 3} {
		rec := FromEvent(testEvent("e", seq))
		rec.ID = rec.ID + "-" + string(rune('0'+seq))
		require.NoError(t, a.PutEvent(context.Background(), rec))
	}

	recs, err := a.AllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Keys embed the seq big-endian, so iteration order is seq order.
	for i, rec := range recs {
		require.Equal(t, uint64(i+1), rec.Seq)
	}
	require.NoError(t, db.Close())

	// Records survive a reopen.
	db2 := openTestDB(t, dir)
	defer db2.Close()
	recs, err = NewPebbleAdapter(db2).AllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "shift.opened", recs[0].Type)
}

func TestPebbleAdapterReset(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	defer db.Close()

	a := NewPebbleAdapter(db)
	require.NoError(t, a.PutEvent(context.Background(), FromEvent(testEvent("e-1", 1))))
	require.NoError(t, a.Reset(context.Background()))

	recs, err := a.AllEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestPebbleAdapterEmptyLog(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	defer db.Close()

	recs, err := NewPebbleAdapter(db).AllEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}
