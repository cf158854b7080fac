// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/console"
)

// NewMembersCmd creates the members subcommand.
func NewMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List stored member permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.New(slog.DiscardHandler)
			backend, err := openBackend(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			recs, err := backend.ListMembers(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // store errors carry codes
			}
			return console.WriteMembers(cmd.OutOrStdout(), recs)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
