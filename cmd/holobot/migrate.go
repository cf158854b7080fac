// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/store/postgres"
	"github.com/holomush/holobot/internal/store/sqlite"
)

// Migrator wraps the methods used from postgres.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// migratorFactory creates the PostgreSQL migrator. Tests replace it.
var migratorFactory = func(url string) (Migrator, error) {
	return postgres.NewMigrator(url)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the member store schema",
		Long: `Manage the member store schema.

PostgreSQL uses versioned migrations. SQLite schemas are updated in place,
so only "up" applies to them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(m Migrator) error { return m.Up() })
		},
	}
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(m Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all member records)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(m Migrator) error { return m.Down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations (negative N rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_STEPS").With("steps", args[0]).Wrap(err)
			}
			return runMigrate(cmd, func(m Migrator) error { return m.Steps(n) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return runMigrate(cmd, func(m Migrator) error { return m.Force(v) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(m Migrator) error { return printStatus(cmd, m) })
		},
	})

	for _, sub := range cmd.Commands() {
		config.RegisterFlags(sub.Flags())
	}
	return cmd
}

func runMigrate(cmd *cobra.Command, apply func(Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if cmd.Name() != "up" && cmd.Name() != "migrate" {
			return oops.Code("MIGRATION_UNSUPPORTED").
				With("driver", cfg.Database.Driver).
				Errorf("%s is only supported for postgres", cmd.Name())
		}
		// Open migrates the SQLite schema.
		store, err := sqlite.Open(cfg.Database.URL, nil)
		if err != nil {
			return err //nolint:wrapcheck // store errors carry codes
		}
		cmd.Printf("SQLite schema at %s is up to date\n", cfg.Database.URL)
		return store.Close() //nolint:wrapcheck // store errors carry codes
	}

	migrator, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if cerr := migrator.Close(); cerr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", cerr)
		}
	}()

	if err := apply(migrator); err != nil {
		return oops.With("operation", cmd.Name()).Wrap(err)
	}
	if cmd.Name() != "status" {
		version, dirty, err := migrator.Version()
		if err != nil {
			return oops.With("operation", "read version").Wrap(err)
		}
		cmd.Printf("Migration version: %d (dirty: %t)\n", version, dirty)
	}
	return nil
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}

	cmd.Printf("Current version: %d\n", version)
	if dirty {
		cmd.Println("WARNING: database is in a dirty state; fix it and run 'holobot migrate force VERSION'")
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}
	cmd.Printf("Pending migrations: %d\n", len(pending))
	for _, v := range pending {
		name, err := postgres.MigrationName(v)
		if err != nil || name == "" {
			name = strconv.FormatUint(uint64(v), 10)
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}
