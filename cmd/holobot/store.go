// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/store/postgres"
	"github.com/holomush/holobot/internal/store/sqlite"
)

// connectAttempts bounds PostgreSQL connection retries at startup.
const connectAttempts = 5

// MemberBackend is an opened member store with its lifecycle hooks.
type MemberBackend interface {
	directory.MemberStore
	Ping(ctx context.Context) error
	Close() error
}

// postgresBackend closes the pool it was opened with.
type postgresBackend struct {
	*postgres.MemberStore
	close func()
}

func (b postgresBackend) Close() error {
	b.close()
	return nil
}

// openBackend opens the configured member store. PostgreSQL schemas are brought
// up to date first when migrate is set; SQLite migrates on open.
func openBackend(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (MemberBackend, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Database.URL, logger)
		if err != nil {
			return nil, err //nolint:wrapcheck // store errors carry codes
		}
		return store, nil
	case config.DriverPostgres:
		if migrate {
			if err := migratePostgresUp(cfg.Database.URL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, cfg.Database.URL, connectAttempts)
		if err != nil {
			return nil, err //nolint:wrapcheck // store errors carry codes
		}
		return postgresBackend{MemberStore: postgres.NewMemberStore(pool), close: pool.Close}, nil
	default:
		return nil, oops.Code(config.CodeInvalid).
			With("driver", cfg.Database.Driver).
			Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func migratePostgresUp(url string, logger *slog.Logger) error {
	migrator, err := postgres.NewMigrator(url)
	if err != nil {
		return err //nolint:wrapcheck // store errors carry codes
	}
	defer func() {
		if cerr := migrator.Close(); cerr != nil {
			logger.Warn("failed to close migrator", "error", cerr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err //nolint:wrapcheck // store errors carry codes
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Info("applying database migrations", "pending", len(pending))
	return migrator.Up() //nolint:wrapcheck // store errors carry codes
}
