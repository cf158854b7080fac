// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package trust defines the ordered trust levels and content restrictions used to
// gate bot commands.
package trust

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// CodeInvalidLevel marks a failed level or restriction conversion. The "reason"
// context tells a wrong input type from an unknown value.
const CodeInvalidLevel = "INVALID_LEVEL"


// Reasons attached to conversion errors under the "reason" context key.
const (
	ReasonType  = "type"  // input has the wrong primitive shape
	ReasonRange = "range" // input has the right shape but names no value
)

// Level is an ordered authorization tier. Higher values grant more.
type Level int

// Trust levels, lowest first.
const (
	Default Level = iota
	Moderator
	Admin
	Owner
)

var levelNames = [...]string{"DEFAULT", "MODERATOR", "ADMIN", "OWNER"}

// Levels returns all levels in ascending order.
func Levels() []Level {
	return []Level{Default, Moderator, Admin, Owner}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Default && l <= Owner
}

func (l Level) String() string {
	if !l.Valid() {
		return "UNKNOWN(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// AtLeast reports whether l satisfies the required level.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, levelRangeError(int(l))
	}
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText decodes a level from its name or ordinal.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts raw input into a Level. It accepts a Level, any integer type
// holding an ordinal, or a string holding either an ordinal or a case-insensitive
// level name. Any other input shape fails with reason "type"; an unrecognized value
// fails with reason "range".
func ParseLevel(raw any) (Level, error) {
	switch v := raw.(type) {
	case Level:
		if !v.Valid() {
			return Default, levelRangeError(v)
		}
		return v, nil
	case string:
		return parseLevelString(v)
	default:
		n, ok := toInt(raw)
		if !ok {
			return Default, oops.Code(CodeInvalidLevel).
				With("reason", ReasonType).
				With("input", raw).
				Errorf("trust level must be an integer or a string, got %T", raw)
		}
		return levelFromOrdinal(n)
	}
}

func parseLevelString(s string) (Level, error) {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return levelFromOrdinal(int64(n))
	}
	upper := strings.ToUpper(trimmed)
	for i, name := range levelNames {
		if name == upper {
			return Level(i), nil
		}
	}
	return Default, levelRangeError(s)
}

func levelFromOrdinal(n int64) (Level, error) {
	l := Level(n)
	if int64(l) != n || !l.Valid() {
		return Default, levelRangeError(n)
	}
	return l, nil
}

func levelRangeError(input any) error {
	return oops.Code(CodeInvalidLevel).
		With("reason", ReasonRange).
		With("input", input).
		Errorf("the trust level %v is unknown", input)
}

// Resolve merges a community-local level with a user's global level. The result is
// never lower than the global level.
func Resolve(local, global Level) Level {
	return max(local, global)
}

// toInt widens every Go integer type. Booleans and floats are rejected.
func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), v <= 1<<62
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= 1<<62
	default:
		return 0, false
	}
}
