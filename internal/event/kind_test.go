// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/pkg/errutil"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Kind
	}{
		{"bare name", "message", KindMessage},
		{"on prefix", "on_message", KindMessage},
		{"upper case with prefix", "ON_REACTION_REMOVE", KindReactionRemove},
		{"mixed case", "Member_Join", KindMemberJoin},
		{"surrounding space", "  command ", KindCommand},
		{"guild alias", "on_guild_join", KindCommunityJoin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKindUnknown(t *testing.T) {
	for _, input := range []string{"", "on_", "on_bogus", "messages", "on_on_message"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseKind(input)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeUnknownEventKind)
		})
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestKindImplementedSet(t *testing.T) {
	var names []string
	for _, k := range Kinds() {
		if k.Implemented() {
			names = append(names, k.String())
		}
	}
	assert.Equal(t, []string{"message", "command", "reaction_add", "member_join", "member_remove"}, names)
	assert.False(t, KindReactionRemove.Implemented())
	assert.True(t, KindReactionRemove.Known())
}

func TestKindUnknownValues(t *testing.T) {
	assert.False(t, Kind(0).Known())
	assert.False(t, kindSentinel.Known())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, "unknown", Kind(200).String())
	assert.Len(t, Kinds(), 15)
}

func TestMatchCommand(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantArgs []string
		wantOK   bool
	}{
		{"bare", ".ping", []string{}, true},
		{"with args", ".ping extra args", []string{"extra", "args"}, true},
		{"tab separator", ".ping\tone", []string{"one"}, true},
		{"collapsed whitespace", ".ping   a    b ", []string{"a", "b"}, true},
		{"longer name", ".pingx", nil, false},
		{"missing prefix", "ping", nil, false},
		{"different command", ".pong", nil, false},
		{"prefix only", ".", nil, false},
		{"case sensitive", ".PING", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, ok := matchCommand(tt.content, ".", "ping")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestMatchCommandMultiCharacterPrefix(t *testing.T) {
	args, ok := matchCommand("!!say hello", "!!", "say")
	require.True(t, ok)
	assert.Equal(t, []string{"hello"}, args)

	_, ok = matchCommand("!say hello", "!!", "say")
	assert.False(t, ok)
}

func TestValidateCommandName(t *testing.T) {
	valid := []string{"ping", "setlevel", "a", "play-next", "ok?", "x_1"}
	for _, name := range valid {
		assert.NoError(t, ValidateCommandName(name), name)
	}

	invalid := []string{"", "1ping", " ping", "pi ng", "ping.", "this-command-name-is-way-too-long-to-use"}
	for _, name := range invalid {
		err := ValidateCommandName(name)
		require.Error(t, err, name)
		errutil.AssertErrorCode(t, err, CodeInvalidHandler)
	}
}
