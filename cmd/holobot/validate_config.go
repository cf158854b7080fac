// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/config"
)

// NewValidateConfigCmd creates the validate-config subcommand.
func NewValidateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration file",
		Long: `Load the configuration file with any flags on top and report problems.

A missing file is replaced by a template, as on startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			seeds, err := cfg.TrustSeeds()
			if err != nil {
				return err //nolint:wrapcheck // carries CONFIG_INVALID
			}
			seeded := 0
			for _, ids := range seeds {
				seeded += len(ids)
			}

			cmd.Printf("%s is valid\n", cfg.Path())
			cmd.Printf("  prefix:   %s\n", cfg.Prefix)
			cmd.Printf("  database: %s\n", cfg.Database.Driver)
			cmd.Printf("  workers:  %d\n", cfg.Workers)
			cmd.Printf("  seeded:   %d user(s)\n", seeded)
			if err := cfg.RequireToken(); err != nil {
				cmd.Println("  warning:  no token set; run will refuse to start")
			}
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
