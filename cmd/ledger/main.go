package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serverrun "github.com/tillroom/ledger/internal/cmd/server"
	cfgpkg "github.com/tillroom/ledger/internal/config"
	"github.com/tillroom/ledger/internal/eventlog"
	"github.com/tillroom/ledger/internal/runtime"
	logpkg "github.com/tillroom/ledger/pkg/log"
)

func main() {
	// Local .env is optional; absence is not an error.
	_ = godotenv.Load()

	level := os.Getenv("LEDGER_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger event log CLI",
		Long:  "Ledger records point-of-sale domain events in an append-only log. This CLI runs the server and inspects the log.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("LEDGER_CONFIG"), "Config file (.json, .toml, .yaml)")

	loadConfig := func(cmd *cobra.Command) (cfgpkg.Config, error) {
		cfg, err := cfgpkg.Load(configPath)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		if err := cfgpkg.FromEnv(&cfg); err != nil {
			return cfgpkg.Config{}, err
		}
		if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		if f := cmd.Flags().Lookup("backend"); f != nil && f.Changed {
			backend, _ := cmd.Flags().GetString("backend")
			cfg.Backend = cfgpkg.Backend(backend)
		}
		return cfg, nil
	}

	addBackendFlags := func(cmd *cobra.Command) {
		cmd.Flags().String("data-dir", "", "Data directory (default: OS-specific application data directory)")
		cmd.Flags().String("backend", "", "Backend: pebble|memory|redis|postgres")
	}

	openRuntime := func(ctx context.Context, cmd *cobra.Command) (*runtime.Runtime, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		return runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logpkg.NewNop()})
	}

	// serve
	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the ledger server",
		Aliases: []string{"server"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat, _ := cmd.Flags().GetString("log-format"); logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if fsync, _ := cmd.Flags().GetString("fsync"); fsync != "" {
				cfg.Fsync = fsync
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	addBackendFlags(serveCmd)
	serveCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never")
	serveCmd.Flags().String("log-level", os.Getenv("LEDGER_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serveCmd.Flags().String("log-format", os.Getenv("LEDGER_LOG_FORMAT"), "Log format: text|json")
	rootCmd.AddCommand(serveCmd)

	// append
	appendCmd := &cobra.Command{
		Use:   "append [payload-json]",
		Short: "Append one event to the log",
		Long:  "Appends an event; the payload is the JSON argument, or stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, _ := cmd.Flags().GetString("type")
			if eventType == "" {
				return fmt.Errorf("--type is required")
			}
			key, _ := cmd.Flags().GetString("key")
			aggID, _ := cmd.Flags().GetString("aggregate-id")
			aggType, _ := cmd.Flags().GetString("aggregate-type")

			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				payload = b
			}
			if !json.Valid(payload) {
				return fmt.Errorf("payload is not valid JSON")
			}

			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Store().Append(eventType, json.RawMessage(payload), eventlog.AppendOptions{
				Key:       key,
				Params:    json.RawMessage(payload),
				Aggregate: eventlog.Aggregate{ID: aggID, Type: aggType},
			})
			if err != nil {
				return err
			}
			out := map[string]any{"id": res.Event.ID, "seq": res.Event.Seq, "deduped": res.Deduped}
			return json.NewEncoder(os.Stdout).Encode(out)
		},
	}
	addBackendFlags(appendCmd)
	appendCmd.Flags().String("type", "", "Event type, optionally versioned (e.g. sale.recorded.v2)")
	appendCmd.Flags().String("key", "", "Idempotency key")
	appendCmd.Flags().String("aggregate-id", "", "Aggregate id")
	appendCmd.Flags().String("aggregate-type", "", "Aggregate type")
	rootCmd.AddCommand(appendCmd)

	// dump
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			filter, _ := cmd.Flags().GetString("filter")
			aggregate, _ := cmd.Flags().GetString("aggregate")
			eventType, _ := cmd.Flags().GetString("type")
			canonical, _ := cmd.Flags().GetBool("canonical")

			var events []eventlog.Event
			switch {
			case filter != "":
				events, err = rt.Store().Query(filter)
				if err != nil {
					return err
				}
			case aggregate != "":
				events = rt.Store().GetByAggregate(aggregate)
			case eventType != "":
				events = rt.Store().GetByType(eventType)
			default:
				events = rt.Store().GetAll()
			}

			enc := json.NewEncoder(os.Stdout)
			for _, ev := range events {
				if canonical {
					p, err := rt.Registry().DecodePayload(ev.Type, ev.Version, ev.Payload)
					if err != nil {
						return fmt.Errorf("decode %s (seq %d): %w", ev.ID, ev.Seq, err)
					}
					raw, err := json.Marshal(p)
					if err != nil {
						return err
					}
					ev.Payload = raw
					ev.Version = rt.Registry().LatestVersion(ev.Type)
				}
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addBackendFlags(dumpCmd)
	dumpCmd.Flags().Bool("canonical", false, "Migrate payloads to their latest schema shape before printing")
	dumpCmd.Flags().String("filter", "", `CEL filter, e.g. 'event_type == "sale.recorded" && payload.totalCents > 1000'`)
	dumpCmd.Flags().String("aggregate", "", "Only events for this aggregate id")
	dumpCmd.Flags().String("type", "", "Only events of this base type")
	rootCmd.AddCommand(dumpCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			byType := map[string]int{}
			for _, ev := range rt.Store().GetAll() {
				byType[ev.Type]++
			}
			out := map[string]any{
				"events":  rt.Store().Len(),
				"lastSeq": rt.Store().LastSeq(),
				"byType":  byType,
				"backend": rt.Config().Backend,
				"schemas": rt.Registry().Types(),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	addBackendFlags(statsCmd)
	rootCmd.AddCommand(statsCmd)

	// reset
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all events from the log and its durable backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("log reset")
			return nil
		},
	}
	addBackendFlags(resetCmd)
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
