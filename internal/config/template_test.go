// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/pkg/errutil"
)

func TestUpdateKeyKeepsRestOfFile(t *testing.T) {
	path := writeConfig(t, `# operator notes
token: abc # keep me
prefix: "."
permission:
  owner: [1]
`)

	require.NoError(t, UpdateKey(path, "prefix", "!"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# operator notes")
	assert.Contains(t, string(raw), "token: abc # keep me")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, "abc", cfg.Token)
	seeds, err := cfg.TrustSeeds()
	require.NoError(t, err)
	assert.Len(t, seeds, 1)
}

func TestUpdateKeyAddsMissingKeys(t *testing.T) {
	path := writeConfig(t, "token: abc\n")

	require.NoError(t, UpdateKey(path, "prefix", "$"))
	require.NoError(t, UpdateKey(path, "database.url", "other.sqlite"))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "$", cfg.Prefix)
	assert.Equal(t, "other.sqlite", cfg.Database.URL)
}

func TestUpdateKeyErrors(t *testing.T) {
	err := UpdateKey(filepath.Join(t.TempDir(), "absent.yml"), "prefix", "!")
	errutil.AssertErrorCode(t, err, CodeInvalid)

	path := writeConfig(t, "- a\n- b\n")
	errutil.AssertErrorCode(t, UpdateKey(path, "prefix", "!"), CodeInvalid)

	path = writeConfig(t, "token: abc\n")
	errutil.AssertErrorCode(t, UpdateKey(path, "token.inner", "x"), CodeInvalid)
}

func TestUpdateKeyKeepsMode(t *testing.T) {
	path := writeConfig(t, "prefix: .\n")
	require.NoError(t, os.Chmod(path, 0o640))

	require.NoError(t, UpdateKey(path, "prefix", "!"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}
