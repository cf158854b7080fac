// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/config"
)

// NewRootCmd creates the root command for the holobot CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holobot",
		Short: "holobot - a permission-aware chat bot",
		Long: `holobot dispatches chat platform events to registered handlers.
Commands are guarded by per-community trust levels, channel restrictions,
and connection preconditions.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath, "config file path")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewInitConfigCmd())
	cmd.AddCommand(NewValidateConfigCmd())
	cmd.AddCommand(NewMembersCmd())
	cmd.AddCommand(NewConsoleCmd())

	return cmd
}

// loadConfig loads the file named by --config with the command's own flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag registered on the root command
	}
	return config.Load(path, cmd.Flags())
}
