// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/console"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/ingest"
	"github.com/holomush/holobot/internal/logging"
)

// NewConsoleCmd creates the console subcommand.
func NewConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the operator console",
		Long: `Open an interactive console on the member store.

Type "help" for the available functions. The console exits on end of input.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.Setup(serviceName, version, cfg.LogFormat, cmd.ErrOrStderr())

			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

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

			b, err := bot.New(&event.Env{
				Directory:   dir,
				Replies:     ingest.NewWriterSink(cmd.OutOrStdout()),
				Connections: ingest.NewStaticConnections(),
				Logger:      logger,
			}, cfg.Prefix, bot.WithSelfID(cfg.SelfID()))
			if err != nil {
				return err //nolint:wrapcheck // registration errors carry codes
			}

			c := console.New(cmd.OutOrStdout(), logger)
			if err := console.RegisterBuiltins(c, b); err != nil {
				return err //nolint:wrapcheck // registration errors carry codes
			}
			return c.Run(ctx, cmd.InOrStdin()) //nolint:wrapcheck // console errors carry codes
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
