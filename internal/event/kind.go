// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"strings"
)

// Kind discriminates inbound platform events for dispatch routing.
type Kind uint8

// Event kinds. The zero value is not a kind.
const (
	KindMessage Kind = iota + 1
	KindCommand
	KindReactionAdd
	KindReactionRemove
	KindMemberJoin
	KindMemberRemove
	KindMessageDelete
	KindMessageEdit
	KindMemberUpdate
	KindUserUpdate
	KindCommunityJoin
	KindCommunityRemove
	KindCommunityUpdate
	KindMemberBan
	KindMemberUnban

	kindSentinel
)

var kindNames = map[Kind]string{
	KindMessage:         "message",
	KindCommand:         "command",
	KindReactionAdd:     "reaction_add",
	KindReactionRemove:  "reaction_remove",
	KindMemberJoin:      "member_join",
	KindMemberRemove:    "member_remove",
	KindMessageDelete:   "message_delete",
	KindMessageEdit:     "message_edit",
	KindMemberUpdate:    "member_update",
	KindUserUpdate:      "user_update",
	KindCommunityJoin:   "guild_join",
	KindCommunityRemove: "guild_remove",
	KindCommunityUpdate: "guild_update",
	KindMemberBan:       "member_ban",
	KindMemberUnban:     "member_unban",
}

// implemented lists the kinds that have a handler variant.
var implemented = map[Kind]bool{
	KindMessage:      true,
	KindCommand:      true,
	KindReactionAdd:  true,
	KindMemberJoin:   true,
	KindMemberRemove: true,
}

// Kinds returns every recognized kind, implemented or not.
func Kinds() []Kind {
	out := make([]Kind, 0, int(kindSentinel)-1)
	for k := KindMessage; k < kindSentinel; k++ {
		out = append(out, k)
	}
	return out
}

// Known reports whether k is a recognized kind.
func (k Kind) Known() bool {
	return k >= KindMessage && k < kindSentinel
}

// Implemented reports whether handlers can be registered for k.
func (k Kind) Implemented() bool {
	return implemented[k]
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a kind name. Names are case-insensitive and may carry an
// "on_" prefix, so "ON_MESSAGE", "on_message", and "message" are equivalent.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.TrimPrefix(normalized, "on_")
	for k, n := range kindNames {
		if n == normalized {
			return k, nil
		}
	}
	return 0, ErrUnknownEventKind(name)
}
