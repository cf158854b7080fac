// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/config"
)

// NewInitConfigCmd creates the init-config subcommand.
func NewInitConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration template",
		Long: `Write a commented configuration template to the --config path.

An existing file is left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err //nolint:wrapcheck // flag registered on the root command
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return oops.Code("CONFIG_EXISTS").
						With("path", path).
						Errorf("%s already exists; pass --force to overwrite it", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return oops.With("path", path).Wrap(err)
				}
			}
			if err := config.WriteTemplate(path); err != nil {
				return err //nolint:wrapcheck // carries CONFIG_INVALID
			}
			cmd.Printf("Wrote configuration template to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
