// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/pkg/errutil"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a config file with a token and a SQLite store in a temp dir.
func writeConfig(t *testing.T, extra string) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yml")
	dbPath = filepath.Join(dir, "holobot.sqlite")
	body := "token: test-token\nprefix: \".\"\nlog_format: text\ndatabase:\n  driver: sqlite\n  url: " + dbPath + "\n" + extra
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dbPath
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"run", "migrate", "init-config", "validate-config", "members", "console"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	out, err := execute(t, "", "init-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration template")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), config.TemplateToken)

	_, err = execute(t, "", "init-config", "--config", path)
	errutil.AssertErrorCode(t, err, "CONFIG_EXISTS")

	_, err = execute(t, "", "init-config", "--config", path, "--force")
	require.NoError(t, err)
}

func TestValidateConfig(t *testing.T) {
	cfgPath, _ := writeConfig(t, "permission:\n  owner: [\"5\"]\n  admin: [\"6\", \"7\"]\n")

	out, err := execute(t, "", "validate-config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "seeded:   3 user(s)")
	assert.NotContains(t, out, "warning")
}

func TestValidateConfig_MissingFileWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	_, err := execute(t, "", "validate-config", "--config", path)
	errutil.AssertErrorCode(t, err, config.CodeTemplateCreated)
	assert.FileExists(t, path)

	// The template itself is valid but has no token.
	out, err := execute(t, "", "validate-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning:  no token set")
}

func TestValidateConfig_Invalid(t *testing.T) {
	cfgPath, _ := writeConfig(t, "permission:\n  owner: [\"5\"]\n  admin: [\"5\"]\n")

	_, err := execute(t, "", "validate-config", "--config", cfgPath)
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
	errutil.AssertErrorContext(t, err, "key", "permission")
}
