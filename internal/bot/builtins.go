// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

// Built-in command names.
const (
	CommandPermission = "permission"
	CommandPing       = "ping"
	CommandSetLevel   = "setlevel"
	CommandPrefix     = "prefix"
)

type builtin struct {
	name  string
	level trust.Level
	fn    event.CommandFunc
}

func (b *Bot) builtins() []builtin {
	return []builtin{
		{name: CommandPermission, level: trust.Default, fn: b.permissionCommand},
		{name: CommandPing, level: trust.Default, fn: b.pingCommand},
		{name: CommandSetLevel, level: trust.Admin, fn: b.setLevelCommand},
		{name: CommandPrefix, level: trust.Owner, fn: b.prefixCommand},
	}
}

func (b *Bot) registerBuiltins() error {
	for _, c := range b.builtins() {
		if b.disabled != nil && b.disabled(c.name) {
			b.logger.Info("built-in command disabled", "command", c.name)
			continue
		}
		if _, err := b.events.OnCommand(c.name, c.fn, event.WithPermission(c.level)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, msg event.Message, format string, args ...any) error {
	return b.env.Replies.SendReply(ctx, msg, fmt.Sprintf(format, args...)) //nolint:wrapcheck // sink errors are logged by the collection
}

func (b *Bot) permissionCommand(ctx context.Context, msg event.Message, _ []string) error {
	member, err := b.env.Directory.Member(ctx, msg.CommunityID, msg.AuthorID)
	if err != nil {
		return err //nolint:wrapcheck // already carries a directory code
	}
	return b.reply(ctx, msg, "Your authorization level is ``%s``", strings.ToLower(member.Level().String()))
}

func (b *Bot) pingCommand(ctx context.Context, msg event.Message, _ []string) error {
	return b.env.Replies.SendNotice(ctx, msg.ChannelID, "Pong!") //nolint:wrapcheck // sink errors are logged by the collection
}

// setLevelCommand sets another member's local level in the current community.
// Nobody can grant more than their own effective level or change a member
// who outranks them.
func (b *Bot) setLevelCommand(ctx context.Context, msg event.Message, args []string) error {
	if len(args) != 2 {
		return b.reply(ctx, msg, "Usage: %s%s <user-id> <level>", b.Prefix(), CommandSetLevel)
	}
	targetID, err := directory.ParseID(args[0])
	if err != nil {
		return b.reply(ctx, msg, "``%s`` is not a valid user id.", args[0])
	}
	level, err := trust.ParseLevel(args[1])
	if err != nil {
		return b.reply(ctx, msg, "``%s`` is not a trust level.", args[1])
	}

	invoker, err := b.env.Directory.Member(ctx, msg.CommunityID, msg.AuthorID)
	if err != nil {
		return err //nolint:wrapcheck // already carries a directory code
	}
	if !invoker.HasPermission(level) {
		return b.reply(ctx, msg, "You cannot grant a level above your own.")
	}
	target, err := b.env.Directory.Member(ctx, msg.CommunityID, targetID)
	if err != nil {
		return err //nolint:wrapcheck // already carries a directory code
	}
	if !invoker.HasPermission(target.Level()) {
		return b.reply(ctx, msg, "You cannot change the level of a member who outranks you.")
	}

	if err := target.SetLevel(ctx, level); err != nil {
		errutil.LogError(ctx, b.logger, "set member level failed", err,
			"user", targetID.String(), "community", msg.CommunityID.String())
		return b.reply(ctx, msg, "Could not change the permission: %s", err.Error())
	}
	return b.reply(ctx, msg, "Successfully changed the server permission of %s to ``%s``",
		targetID, strings.ToLower(level.String()))
}

// prefixCommand persists a new prefix before switching to it. Concurrent changes
// are serialized so the stored and active prefixes agree.
func (b *Bot) prefixCommand(ctx context.Context, msg event.Message, args []string) error {
	if len(args) != 1 {
		return b.reply(ctx, msg, "Usage: %s%s <new-prefix>", b.Prefix(), CommandPrefix)
	}
	next := args[0]
	if err := validatePrefix(next); err != nil {
		return b.reply(ctx, msg, "``%s`` cannot be used as a prefix.", next)
	}

	b.prefixMu.Lock()
	defer b.prefixMu.Unlock()
	if b.store != nil {
		if err := b.store(ctx, next); err != nil {
			errutil.LogError(ctx, b.logger, "persist prefix failed", err, "prefix", next)
			return b.reply(ctx, msg, "Could not save the new prefix: %s", err.Error())
		}
	}
	if err := b.SetPrefix(next); err != nil {
		return err
	}
	b.logger.InfoContext(ctx, "command prefix changed", "prefix", next, "author", msg.AuthorID.String())
	return b.reply(ctx, msg, "The command prefix is now ``%s``", next)
}
