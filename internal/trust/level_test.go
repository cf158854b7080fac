// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package trust_test

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want trust.Level
	}{
		{"lowercase name", "owner", trust.Owner},
		{"uppercase name", "MODERATOR", trust.Moderator},
		{"mixed case name", "AdMiN", trust.Admin},
		{"padded name", "  default ", trust.Default},
		{"ordinal int", 3, trust.Owner},
		{"ordinal int64", int64(2), trust.Admin},
		{"ordinal uint8", uint8(1), trust.Moderator},
		{"numeric string", "3", trust.Owner},
		{"level passthrough", trust.Admin, trust.Admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := trust.ParseLevel(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel_OwnerByNameAndOrdinalAgree(t *testing.T) {
	byName, err := trust.ParseLevel("owner")
	require.NoError(t, err)
	byOrdinal, err := trust.ParseLevel(3)
	require.NoError(t, err)

	assert.Equal(t, trust.Owner, byName)
	assert.Equal(t, byName, byOrdinal)
}

func TestParseLevel_Errors(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		reason string
	}{
		{"unknown name", "bogus", trust.ReasonRange},
		{"ordinal out of range", 99, trust.ReasonRange},
		{"negative ordinal", -1, trust.ReasonRange},
		{"numeric string out of range", "7", trust.ReasonRange},
		{"invalid level value", trust.Level(42), trust.ReasonRange},
		{"float", 1.0, trust.ReasonType},
		{"bool", true, trust.ReasonType},
		{"nil", nil, trust.ReasonType},
		{"slice", []string{"owner"}, trust.ReasonType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trust.ParseLevel(tt.raw)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, trust.CodeInvalidLevel)
			errutil.AssertErrorContext(t, err, "reason", tt.reason)
		})
	}
}

func TestLevel_RoundTrip(t *testing.T) {
	for _, l := range trust.Levels() {
		t.Run(l.String(), func(t *testing.T) {
			text, err := l.MarshalText()
			require.NoError(t, err)

			var decoded trust.Level
			require.NoError(t, decoded.UnmarshalText(text))
			assert.Equal(t, l, decoded)

			byOrdinal, err := trust.ParseLevel(int(l))
			require.NoError(t, err)
			assert.Equal(t, l, byOrdinal)
		})
	}
}

func TestLevel_Ordering(t *testing.T) {
	levels := trust.Levels()
	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i-1], levels[i])
		assert.True(t, levels[i].AtLeast(levels[i-1]))
		assert.False(t, levels[i-1].AtLeast(levels[i]))
	}
}

func TestResolve(t *testing.T) {
	for _, local := range trust.Levels() {
		for _, global := range trust.Levels() {
			got := trust.Resolve(local, global)
			if local <= global {
				assert.Equal(t, global, got, "local=%s global=%s", local, global)
			} else {
				assert.Equal(t, local, got, "local=%s global=%s", local, global)
			}
			assert.GreaterOrEqual(t, got, global)
		}
	}
}

func TestLevel_StringUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN(9)", trust.Level(9).String())

	_, err := trust.Level(9).MarshalText()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, trust.CodeInvalidLevel, oopsErr.Code())
}
