package serverrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "github.com/tillroom/ledger/internal/config"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Backend = cfgpkg.BackendMemory
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Config: cfg}) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Backend = "tape-drive"
	require.Error(t, Run(context.Background(), Options{Config: cfg}))
}
