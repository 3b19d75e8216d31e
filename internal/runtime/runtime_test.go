package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "github.com/tillroom/ledger/internal/config"
	"github.com/tillroom/ledger/internal/eventlog"
)

func memConfig() cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Backend = cfgpkg.BackendMemory
	return cfg
}

func pebbleConfig(dir string) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Backend = cfgpkg.BackendPebble
	cfg.DataDir = dir
	return cfg
}

func appendSale(t *testing.T, rt *Runtime, key string, cents int64) eventlog.Event {
	t.Helper()
	payload := map[string]any{"ticketId": "T-1", "totalCents": cents, "currency": "EUR"}
	res, err := rt.Store().Append("sale.recorded.v2", payload,
		eventlog.AppendOptions{Key: key, Params: payload,
			Aggregate: eventlog.Aggregate{ID: "T-1", Type: "ticket"}})
	require.NoError(t, err)
	require.True(t, res.IsNew)
	return res.Event
}

func TestOpenAppendHealth(t *testing.T) {
	rt, err := Open(context.Background(), Options{Config: memConfig()})
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.CheckHealth(context.Background()))
	ev := appendSale(t, rt, "k-1", 500)
	require.Equal(t, uint64(1), ev.Seq)
	require.Equal(t, eventlog.StateWarm, rt.Store().State())
}

func TestReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()

	rt, err := Open(context.Background(), Options{Config: pebbleConfig(dir)})
	require.NoError(t, err)
	appendSale(t, rt, "k-1", 100)
	appendSale(t, rt, "k-2", 200)
	require.NoError(t, rt.Close())

	rt2, err := Open(context.Background(), Options{Config: pebbleConfig(dir)})
	require.NoError(t, err)
	defer rt2.Close()

	require.Equal(t, 2, rt2.Store().Len(), "durable history replayed")
	require.NoError(t, rt2.CheckHealth(context.Background()))

	ev := appendSale(t, rt2, "k-3", 300)
	require.Equal(t, uint64(3), ev.Seq, "sequence continues after restart")
}

func TestResetClearsBothSides(t *testing.T) {
	dir := t.TempDir()

	rt, err := Open(context.Background(), Options{Config: pebbleConfig(dir)})
	require.NoError(t, err)
	appendSale(t, rt, "k-1", 100)

	// Let the async durable write land before resetting.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, rt.Reset(context.Background()))
	require.Equal(t, 0, rt.Store().Len())
	require.NoError(t, rt.Close())

	rt2, err := Open(context.Background(), Options{Config: pebbleConfig(dir)})
	require.NoError(t, err)
	defer rt2.Close()
	require.Equal(t, 0, rt2.Store().Len(), "reset reached the durable mirror")
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Backend = "carrier-pigeon"
	_, err := Open(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestStrictModeWiredThrough(t *testing.T) {
	cfg := memConfig()
	cfg.RequireIdempotencyKey = true
	rt, err := Open(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close()

	payload := json.RawMessage(`{"ticketId":"T-1","totalCents":100,"currency":"EUR"}`)
	_, err = rt.Store().Append("sale.recorded.v2", payload, eventlog.AppendOptions{})
	require.ErrorIs(t, err, eventlog.ErrKeyRequired)
}
