// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/store/sqlite"
	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

func seedStore(t *testing.T, dbPath string, recs ...directory.MemberRecord) {
	t.Helper()
	s, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()
	for _, rec := range recs {
		require.NoError(t, s.CreateMember(context.Background(), rec))
	}
}

func TestMembersCommand(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, "")
	seedStore(t, dbPath,
		directory.MemberRecord{UserID: 5, CommunityID: 1, Level: trust.Moderator},
		directory.MemberRecord{UserID: 6, CommunityID: 1},
	)

	out, err := execute(t, "", "members", "--config", cfgPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"COMMUNITY", "USER", "LEVEL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "5", "moderator"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "6", "default"}, strings.Fields(lines[2]))
}

func TestConsoleCommand(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, "")
	seedStore(t, dbPath, directory.MemberRecord{UserID: 5, CommunityID: 1, Level: trust.Admin})

	out, err := execute(t, "members\nnope\n", "console", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "COMMUNITY")
	assert.Contains(t, out, "There is no 'nope' command.")
}

type fakeMigrator struct {
	calls   []string
	version uint
	pending []uint
}

func (m *fakeMigrator) Up() error   { m.calls = append(m.calls, "up"); return nil }
func (m *fakeMigrator) Down() error { m.calls = append(m.calls, "down"); return nil }
func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	m.version = uint(int(m.version) + n)
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, false, nil }

func (m *fakeMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.version = uint(v)
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *fakeMigrator) Close() error                       { return nil }

func usePostgresMigrator(t *testing.T, m *fakeMigrator) string {
	t.Helper()
	prev := migratorFactory
	migratorFactory = func(string) (Migrator, error) { return m, nil }
	t.Cleanup(func() { migratorFactory = prev })

	path := filepath.Join(t.TempDir(), "config.yml")
	body := "database:\n  driver: postgres\n  url: postgres://bot@localhost/holobot\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMigrateCommand_Postgres(t *testing.T) {
	m := &fakeMigrator{version: 1, pending: []uint{2}}
	cfgPath := usePostgresMigrator(t, m)

	out, err := execute(t, "", "migrate", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1")
	assert.Contains(t, out, "Pending migrations: 1")

	out, err = execute(t, "", "migrate", "steps", "1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Migration version: 2 (dirty: false)")

	_, err = execute(t, "", "migrate", "force", "3", "--config", cfgPath)
	require.NoError(t, err)
	_, err = execute(t, "", "migrate", "--config", cfgPath)
	require.NoError(t, err)
	_, err = execute(t, "", "migrate", "down", "--config", cfgPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"steps", "force", "up", "down"}, m.calls)
}

func TestMigrateCommand_BadArguments(t *testing.T) {
	cfgPath := usePostgresMigrator(t, &fakeMigrator{})

	_, err := execute(t, "", "migrate", "steps", "two", "--config", cfgPath)
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")

	_, err = execute(t, "", "migrate", "force", "x", "--config", cfgPath)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrateCommand_SQLite(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, "")

	out, err := execute(t, "", "migrate", "up", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")
	assert.FileExists(t, dbPath)

	_, err = execute(t, "", "migrate", "down", "--config", cfgPath)
	errutil.AssertErrorCode(t, err, "MIGRATION_UNSUPPORTED")
}
