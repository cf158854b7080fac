// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"github.com/holomush/holobot/internal/directory"
)

// Message is a chat message received from the platform.
type Message struct {
	ID               string       `json:"id"`
	Content          string       `json:"content"`
	AuthorID         directory.ID `json:"author_id"`
	CommunityID      directory.ID `json:"community_id"`
	ChannelID        directory.ID `json:"channel_id"`
	ChannelSensitive bool         `json:"channel_sensitive"`
}

// Reaction is an emoji reaction a user placed on a message.
type Reaction struct {
	Message Message      `json:"message"`
	UserID  directory.ID `json:"user_id"`
	Emoji   string       `json:"emoji"`
}

// MemberChange describes a user joining or leaving a community.
type MemberChange struct {
	CommunityID directory.ID `json:"community_id"`
	UserID      directory.ID `json:"user_id"`
}

// Payload is the argument set of one dispatch. The set of payloads is closed.
type Payload interface {
	accepts(kind Kind) bool
}

// MessageDispatch carries a message through one middleware phase.
type MessageDispatch struct {
	Message      Message
	AfterCommand bool
}

// CommandDispatch carries a prefixed message to the command handlers.
type CommandDispatch struct {
	Message Message
	Prefix  string
}

// ReactionDispatch carries a reaction.
type ReactionDispatch struct {
	Reaction Reaction
}

// MemberDispatch carries a membership change.
type MemberDispatch struct {
	Change MemberChange
}

func (MessageDispatch) accepts(k Kind) bool  { return k == KindMessage }
func (CommandDispatch) accepts(k Kind) bool  { return k == KindCommand }
func (ReactionDispatch) accepts(k Kind) bool { return k == KindReactionAdd || k == KindReactionRemove }
func (MemberDispatch) accepts(k Kind) bool   { return k == KindMemberJoin || k == KindMemberRemove }
