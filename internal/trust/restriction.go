// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package trust

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Restriction gates a command on the content sensitivity of the originating channel.
type Restriction int

// Restrictions.
const (
	RestrictionNone Restriction = iota
	RestrictionNSFW
)

var restrictionNames = [...]string{"NONE", "NSFW"}

// Valid reports whether r is a defined restriction.
func (r Restriction) Valid() bool {
	return r == RestrictionNone || r == RestrictionNSFW
}

func (r Restriction) String() string {
	if !r.Valid() {
		return "UNKNOWN(" + strconv.Itoa(int(r)) + ")"
	}
	return restrictionNames[r]
}

// Permits reports whether a channel with the given sensitivity flag may run content
// carrying this restriction.
func (r Restriction) Permits(channelSensitive bool) bool {
	return r != RestrictionNSFW || channelSensitive
}

// ParseRestriction converts raw input into a Restriction with the same rules as
// ParseLevel.
func ParseRestriction(raw any) (Restriction, error) {
	switch v := raw.(type) {
	case Restriction:
		if !v.Valid() {
			return RestrictionNone, restrictionRangeError(v)
		}
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return restrictionFromOrdinal(int64(n))
		}
		upper := strings.ToUpper(trimmed)
		for i, name := range restrictionNames {
			if name == upper {
				return Restriction(i), nil
			}
		}
		return RestrictionNone, restrictionRangeError(v)
	default:
		n, ok := toInt(raw)
		if !ok {
			return RestrictionNone, oops.Code(CodeInvalidLevel).
				With("reason", ReasonType).
				With("input", raw).
				Errorf("restriction must be an integer or a string, got %T", raw)
		}
		return restrictionFromOrdinal(n)
	}
}

func restrictionFromOrdinal(n int64) (Restriction, error) {
	r := Restriction(n)
	if int64(r) != n || !r.Valid() {
		return RestrictionNone, restrictionRangeError(n)
	}
	return r, nil
}

func restrictionRangeError(input any) error {
	return oops.Code(CodeInvalidLevel).
		With("reason", ReasonRange).
		With("input", input).
		Errorf("the restriction %v is unknown", input)
}
