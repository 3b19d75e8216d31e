package persist

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/internal/metrics"
	"github.com/tillroom/ledger/internal/schema"
	"github.com/tillroom/ledger/pkg/log"
)

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// QueueSize bounds the number of in-flight durable writes. Defaults
	// to 1024. When the queue is full, Enqueue drops the write (memory
	// remains the source of truth) and counts the drop.
	QueueSize int
	// WriteTimeout bounds a single PutEvent call. Defaults to 5s.
	WriteTimeout time.Duration
	// Registry migrates legacy payload versions during hydration.
	Registry *schema.Registry
	// Logger receives write-failure warnings. Defaults to a nop logger.
	Logger log.Logger
	// Metrics observes queue depth and write outcomes. Optional.
	Metrics *metrics.Metrics
}

// Bridge mirrors log writes to a durable Adapter asynchronously and
// replays durable history into the log at startup. It implements
// eventlog.Sink.
type Bridge struct {
	adapter  Adapter
	registry *schema.Registry
	logger   log.Logger
	metrics  *metrics.Metrics

	// failWarn throttles repeated write-failure logging; the failures
	// themselves are always counted.
	failWarn *rate.Limiter

	writeTimeout time.Duration
	ch           chan job
	quit         chan struct{}
	closed       atomic.Bool
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

// job is one unit of work for the background writer: either an event to
// persist or a reset request. Routing resets through the same channel
// serializes them behind every write queued or in flight before them.
type job struct {
	ev    eventlog.Event
	reset chan error
	ctx   context.Context
}

// NewBridge starts the background writer and returns the bridge.
func NewBridge(adapter Adapter, opts BridgeOptions) *Bridge {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	b := &Bridge{
		adapter:      adapter,
		registry:     opts.Registry,
		logger:       logger.With(log.Component("persist")),
		metrics:      opts.Metrics,
		failWarn:     rate.NewLimiter(rate.Every(time.Second), 3),
		writeTimeout: opts.WriteTimeout,
		ch:           make(chan job, opts.QueueSize),
		quit:         make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Enqueue implements eventlog.Sink. It never blocks: when the queue is
// full the durable write is dropped and counted, and the append proceeds
// unaffected.
func (b *Bridge) Enqueue(e eventlog.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.ch <- job{ev: e}:
		b.metrics.SetQueueDepth(len(b.ch))
	default:
		b.metrics.IncPersist("dropped")
		if b.failWarn.Allow() {
			b.logger.Warn("persist queue full; durable write dropped",
				log.Str("event_id", e.ID), log.Uint64("seq", e.Seq))
		}
	}
}

func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case j := <-b.ch:
			b.handle(j)
		case <-b.quit:
			// Drain whatever is already queued, then exit.
			for {
				select {
				case j := <-b.ch:
					b.handle(j)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) handle(j job) {
	if j.reset != nil {
		j.reset <- b.adapter.Reset(j.ctx)
		return
	}
	b.write(j.ev)
}

func (b *Bridge) write(e eventlog.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
	defer cancel()
	b.metrics.SetQueueDepth(len(b.ch))
	if err := b.adapter.PutEvent(ctx, FromEvent(e)); err != nil {
		b.metrics.IncPersist("error")
		if b.failWarn.Allow() {
			b.logger.Error("durable write failed; event remains in memory",
				log.Err(err), log.Str("event_id", e.ID), log.Uint64("seq", e.Seq))
		}
		return
	}
	b.metrics.IncPersist("ok")
}

// Hydrate replays all durable records into the store in ascending seq
// order, migrating legacy payload versions to the latest shape, then
// opens the store for appends. Returns the number of records replayed.
// Any failure aborts hydration; the caller decides whether to run
// memory-only or give up.
func (b *Bridge) Hydrate(ctx context.Context, store *eventlog.Store) (int, error) {
	recs, err := b.adapter.AllEvents(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "hydrate: read events", Err: err}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	for _, rec := range recs {
		ev := rec.ToEvent()
		if b.registry != nil {
			version, payload, err := b.registry.Migrate(ev.Type, ev.Version, ev.Payload)
			if err != nil {
				return 0, &PersistenceError{Op: "hydrate: migrate " + ev.ID, Err: err}
			}
			ev.Version = version
			ev.Payload = payload
		}
		if err := store.Ingest(ev); err != nil {
			return 0, &PersistenceError{Op: "hydrate: ingest " + ev.ID, Err: err}
		}
	}
	store.MarkHydrated()
	b.metrics.AddHydrated(len(recs))
	b.logger.Info("hydration complete",
		log.Int("events", len(recs)), log.Uint64("last_seq", store.LastSeq()))
	return len(recs), nil
}

// Reset mirrors the log's reset onto the durable backend. The request
// goes through the writer queue, so every durable write queued or in
// flight before it lands first and is then wiped; none can resurface at
// the next hydration.
func (b *Bridge) Reset(ctx context.Context) error {
	if b.closed.Load() {
		if err := b.adapter.Reset(ctx); err != nil {
			return &PersistenceError{Op: "reset", Err: err}
		}
		return nil
	}
	done := make(chan error, 1)
	select {
	case b.ch <- job{reset: done, ctx: ctx}:
	case <-b.quit:
		if err := b.adapter.Reset(ctx); err != nil {
			return &PersistenceError{Op: "reset", Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		if err != nil {
			return &PersistenceError{Op: "reset", Err: err}
		}
		return nil
	case <-b.quit:
		// The writer may have exited before reaching the request; wait for
		// it and run the reset directly. A double reset is harmless.
		b.wg.Wait()
		if err := b.adapter.Reset(ctx); err != nil {
			return &PersistenceError{Op: "reset", Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued writes, stops the writer and closes the adapter.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.quit)
	})
	b.wg.Wait()
	return b.adapter.Close()
}
