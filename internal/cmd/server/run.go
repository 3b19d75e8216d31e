package serverrun

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfgpkg "github.com/tillroom/ledger/internal/config"
	"github.com/tillroom/ledger/internal/metrics"
	"github.com/tillroom/ledger/internal/runtime"
	logpkg "github.com/tillroom/ledger/pkg/log"
)

// Options for the server process.
type Options struct {
	Config cfgpkg.Config
}

// Run opens the runtime and serves /metrics and /healthz until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers
	// without signal handling still stop cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config

	logger, err := logpkg.ApplyConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logpkg.RedirectStdLog(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: logger, Metrics: m})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("ledger server started",
		logpkg.Str("backend", string(cfg.Backend)),
		logpkg.Str("data_dir", cfg.DataDir),
		logpkg.Str("metrics", cfg.MetricsAddr),
		logpkg.Str("level", cfg.LogLevel),
		logpkg.Str("format", cfg.LogFormat),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.CheckHealth(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-sctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("http shutdown", logpkg.Err(err))
	}
	logger.Info("ledger server stopped")
	return nil
}
