// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/directory"
)

// ReplySink delivers bot output to the platform. Calls block until the platform
// accepted the output or failed.
type ReplySink interface {
	// Typing shows a typing indicator in a channel.
	Typing(ctx context.Context, channelID directory.ID) error

	// SendNotice posts text to a channel.
	SendNotice(ctx context.Context, channelID directory.ID, text string) error

	// SendReply posts text as a reply to msg.
	SendReply(ctx context.Context, msg Message, text string) error
}

// ConnectionOracle reports whether the bot holds an active voice/session
// connection in a community.
type ConnectionOracle interface {
	HasActiveConnection(ctx context.Context, communityID directory.ID) bool
}

// Env is the explicit context shared by the registry and the guard chain.
type Env struct {
	Directory   *directory.Directory
	Replies     ReplySink
	Connections ConnectionOracle // nil means no community is ever connected
	Logger      *slog.Logger     // nil means slog.Default()
}

func (e *Env) validate() error {
	if e == nil {
		return oops.Code(CodeInvalidHandler).Errorf("environment is required")
	}
	if e.Directory == nil {
		return oops.Code(CodeInvalidHandler).Errorf("environment requires a directory")
	}
	if e.Replies == nil {
		return oops.Code(CodeInvalidHandler).Errorf("environment requires a reply sink")
	}
	return nil
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Env) connected(ctx context.Context, communityID directory.ID) bool {
	if e.Connections == nil {
		return false
	}
	return e.Connections.HasActiveConnection(ctx, communityID)
}
