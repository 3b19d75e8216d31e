package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tillroom/ledger/internal/audit"
	cfgpkg "github.com/tillroom/ledger/internal/config"
	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/internal/metrics"
	"github.com/tillroom/ledger/internal/persist"
	"github.com/tillroom/ledger/internal/schema"
	pebblestore "github.com/tillroom/ledger/internal/storage/pebble"
	"github.com/tillroom/ledger/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config  cfgpkg.Config
	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Runtime owns the log, its durable backend and the wiring between them.
type Runtime struct {
	config   cfgpkg.Config
	logger   log.Logger
	metrics  *metrics.Metrics
	db       *pebblestore.DB
	registry *schema.Registry
	store    *eventlog.Store
	bridge   *persist.Bridge
}

// Open builds the configured backend, hydrates the log from it and
// returns a Runtime ready to accept appends.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("runtime: load schemas: %w", err)
	}

	rt := &Runtime{config: cfg, logger: logger, metrics: opts.Metrics, registry: registry}

	adapter, err := rt.openAdapter(ctx)
	if err != nil {
		return nil, err
	}

	rt.bridge = persist.NewBridge(adapter, persist.BridgeOptions{
		QueueSize: cfg.PersistQueueSize,
		Registry:  registry,
		Logger:    logger,
		Metrics:   opts.Metrics,
	})

	rt.store = eventlog.NewStore(eventlog.Options{
		Registry:       registry,
		Logger:         logger,
		Hook:           audit.NewLoggerHook(logger),
		Sink:           rt.bridge,
		Metrics:        opts.Metrics,
		RequireKey:     cfg.RequireIdempotencyKey,
		AwaitHydration: true,
	})

	n, err := rt.bridge.Hydrate(ctx, rt.store)
	if err != nil {
		rt.bridge.Close()
		rt.closeBackend()
		return nil, err
	}
	logger.Info("runtime open",
		log.Str("backend", string(cfg.Backend)),
		log.Int("hydrated_events", n),
		log.Uint64("last_seq", rt.store.LastSeq()))
	return rt, nil
}

func (r *Runtime) openAdapter(ctx context.Context) (persist.Adapter, error) {
	cfg := r.config
	switch cfg.Backend {
	case cfgpkg.BackendPebble:
		fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       cfg.DataDir,
			Fsync:         fsync,
			FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
			Metrics:       r.metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: open pebble at %s: %w", cfg.DataDir, err)
		}
		r.db = db
		return persist.NewPebbleAdapter(db), nil
	case cfgpkg.BackendMemory:
		return persist.NewMemoryAdapter(), nil
	case cfgpkg.BackendRedis:
		return persist.NewRedisAdapter(ctx, cfg.RedisAddr, cfg.RedisKey)
	case cfgpkg.BackendPostgres:
		return persist.NewPostgresAdapter(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("runtime: unknown backend %q", cfg.Backend)
	}
}

// Store returns the hydrated event log.
func (r *Runtime) Store() *eventlog.Store { return r.store }

// Registry returns the schema registry.
func (r *Runtime) Registry() *schema.Registry { return r.registry }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Reset clears the in-memory log and its durable mirror.
func (r *Runtime) Reset(ctx context.Context) error {
	r.store.Reset()
	return r.bridge.Reset(ctx)
}

// CheckHealth verifies the runtime can serve appends and reads.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("runtime: store not open")
	}
	if r.store.State() != eventlog.StateWarm {
		return errors.New("runtime: log not hydrated")
	}
	if r.db != nil {
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		it.Close()
	}
	return nil
}

// Close drains pending durable writes and releases backend resources.
func (r *Runtime) Close() error {
	var first error
	if r.bridge != nil {
		first = r.bridge.Close()
	}
	if err := r.closeBackend(); err != nil && first == nil {
		first = err
	}
	return first
}

func (r *Runtime) closeBackend() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
