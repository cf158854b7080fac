// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/ingest"
	"github.com/holomush/holobot/internal/logging"
	"github.com/holomush/holobot/internal/observability"
)

// serviceName tags every log record.
const serviceName = "holobot"

type runFlags struct {
	events      string
	connected   []string
	autoMigrate bool
}

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot",
		Long: `Run the bot over a stream of platform events.

Events are read as JSON lines from --events (default: stdin); bot output is
written as JSON lines to stdout. The bot stops when the stream ends or on
SIGINT/SIGTERM, after in-flight events finish.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBotWithDeps(cmd.Context(), cmd, flags, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&flags.events, "events", "-", "event log to replay (- for stdin)")
	cmd.Flags().StringSliceVar(&flags.connected, "connected", nil, "community ids the bot holds an active connection in")
	cmd.Flags().BoolVar(&flags.autoMigrate, "auto-migrate", true, "apply pending PostgreSQL migrations at startup")

	return cmd
}

// runBotWithDeps runs the bot with injectable dependencies.
// If deps is nil, default implementations are used.
func runBotWithDeps(ctx context.Context, cmd *cobra.Command, flags *runFlags, deps *RunDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err //nolint:wrapcheck // carries CONFIG_INVALID
	}

	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, cmd.ErrOrStderr())
	logger.Info("starting bot",
		"config", cfg.Path(),
		"driver", cfg.Database.Driver,
		"workers", cfg.Workers)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := deps.BackendOpener(ctx, cfg, flags.autoMigrate, logger)
	if err != nil {
		return oops.With("operation", "open member store").Wrap(err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logger.Warn("error closing member store", "error", cerr)
		}
	}()

	dir, err := directory.New(backend)
	if err != nil {
		return err //nolint:wrapcheck // directory errors carry codes
	}
	seeds, err := cfg.TrustSeeds()
	if err != nil {
		return err //nolint:wrapcheck // carries CONFIG_INVALID
	}
	if err := dir.Seed(seeds); err != nil {
		return err //nolint:wrapcheck // carries CONFIG_INVALID
	}
	logger.Info("seeded global trust levels", "users", len(dir.Users()))

	connected, err := parseConnected(flags.connected)
	if err != nil {
		return err
	}

	var current atomic.Pointer[bot.Bot]
	var metrics *observability.Metrics
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		obsServer := deps.ObservabilityServerFactory(cfg.MetricsAddr,
			observability.WithChecks(readinessChecks(&current, backend)...),
			observability.WithCollectors(event.RegisterMetrics),
			observability.WithLogger(logger),
		)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("addr", cfg.MetricsAddr).Wrapf(err, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		metrics = obsServer.Metrics()
	}

	disabled, err := cfg.DisabledMatcher()
	if err != nil {
		return err //nolint:wrapcheck // carries CONFIG_INVALID
	}
	env := &event.Env{
		Directory:   dir,
		Replies:     ingest.NewWriterSink(cmd.OutOrStdout()),
		Connections: ingest.NewStaticConnections(connected...),
		Logger:      logger,
	}
	b, err := bot.New(env, cfg.Prefix,
		bot.WithSelfID(cfg.SelfID()),
		bot.WithWorkers(cfg.Workers),
		bot.WithDisabledCommands(disabled),
		bot.WithMetrics(metrics),
		bot.WithPrefixStore(func(_ context.Context, prefix string) error {
			return config.UpdateKey(cfg.Path(), "prefix", prefix)
		}),
	)
	if err != nil {
		return err //nolint:wrapcheck // registration errors carry codes
	}

	events, err := deps.EventsOpener(flags.events, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer func() { _ = events.Close() }()

	inbound := make(chan bot.Inbound, cfg.Workers)
	sourceErr := make(chan error, 1)
	go func() { sourceErr <- ingest.NewSource(events, logger, metrics).Run(ctx, inbound) }()

	current.Store(b)
	if err := b.Run(ctx, inbound); err != nil {
		return oops.With("operation", "run bot").Wrap(err)
	}
	// A source blocked on an open stdin is abandoned once ctx is done.
	select {
	case err := <-sourceErr:
		if err != nil {
			return oops.With("operation", "read events").Wrap(err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutdown complete")
	return nil
}

// errBotNotRunning fails the readiness check until the event loop starts and
// after it drains.
var errBotNotRunning = oops.Code("BOT_NOT_RUNNING").Errorf("bot event loop is not running")

// readinessChecks reports ready while the bot's event loop is running and the
// member store answers a ping.
func readinessChecks(current *atomic.Pointer[bot.Bot], backend MemberBackend) []observability.Check {
	return []observability.Check{
		{Name: "bot", Run: func(context.Context) error {
			if b := current.Load(); b == nil || !b.Ready() {
				return errBotNotRunning
			}
			return nil
		}},
		{Name: "store", Run: backend.Ping},
	}
}

// parseConnected parses the --connected community ids.
func parseConnected(raw []string) ([]directory.ID, error) {
	ids := make([]directory.ID, 0, len(raw))
	for _, s := range raw {
		id, err := directory.ParseID(strings.TrimSpace(s))
		if err != nil {
			return nil, oops.With("flag", "connected").Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// monitorServerErrors cancels the run when a background server fails. It exits
// when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
