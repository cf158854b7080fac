// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/holomush/holobot/pkg/errutil"
)

var tracer = otel.Tracer("holobot/event")

// MaxCommandLength is the maximum length of a command name.
const MaxCommandLength = 32

// commandPattern: starts with a letter, then letters, digits, or _!?-
var commandPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_!?\-]*$`)

// ValidateCommandName validates a command name.
func ValidateCommandName(name string) error {
	if name == "" {
		return oops.Code(CodeInvalidHandler).
			With("kind", KindCommand.String()).
			Errorf("command name cannot be empty")
	}
	if len(name) > MaxCommandLength {
		return oops.Code(CodeInvalidHandler).
			With("kind", KindCommand.String()).
			With("length", len(name)).
			With("max", MaxCommandLength).
			Errorf("command name exceeds maximum length of %d", MaxCommandLength)
	}
	if !commandPattern.MatchString(name) {
		return oops.Code(CodeInvalidHandler).
			With("kind", KindCommand.String()).
			With("name", name).
			Errorf("command name must start with a letter and contain only letters, digits, or _!?-")
	}
	return nil
}

// matchCommand reports whether content invokes command under prefix, and returns
// the arguments after the command name. The name must be followed by whitespace
// or end the content, so ".pingx" does not invoke "ping".
func matchCommand(content, prefix, command string) ([]string, bool) {
	rest, ok := strings.CutPrefix(content, prefix+command)
	if !ok {
		return nil, false
	}
	if rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(r) {
			return nil, false
		}
	}
	return strings.Fields(rest), true
}

func (h *CommandHandler) execute(ctx context.Context, env *Env, p Payload) (bool, error) {
	d, ok := p.(CommandDispatch)
	if !ok {
		return false, ErrPayloadMismatch(KindCommand, p)
	}
	args, ok := matchCommand(d.Message.Content, d.Prefix, h.command)
	if !ok {
		return false, nil
	}

	ctx, span := tracer.Start(ctx, "command.guard")
	span.SetAttributes(
		attribute.String("command.name", h.command),
		attribute.String("command.permission", h.permission.String()),
		attribute.String("message.author", d.Message.AuthorID.String()),
	)
	defer span.End()

	logger := env.logger().With(
		slog.String("command", h.command),
		slog.String("author", d.Message.AuthorID.String()),
		slog.String("community", d.Message.CommunityID.String()),
	)

	// Typing goes out before any check, denied attempts included.
	if err := env.Replies.Typing(ctx, d.Message.ChannelID); err != nil {
		logger.WarnContext(ctx, "typing indicator failed", "error", err)
	}

	denial, err := h.check(ctx, env, d.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return true, err
	}
	if denial != nil {
		span.SetAttributes(attribute.String("command.denied", denialReason(denial)))
		recordGuardDenial(h.command, denialReason(denial))
		logger.DebugContext(ctx, "command denied", "reason", denialReason(denial))
		if err := h.notify(ctx, env, d.Message, denial); err != nil {
			span.RecordError(err)
			return true, oops.With("command", h.command).Wrapf(err, "deliver denial notice")
		}
		return true, nil
	}

	if err := h.fn(ctx, d.Message, args); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return true, err
	}
	return true, nil
}

// check runs the guards in order: permission, restriction, connection. The first
// failing guard is returned as a denial; err is reserved for lookups that failed.
func (h *CommandHandler) check(ctx context.Context, env *Env, msg Message) (denial, err error) {
	member, err := env.Directory.Member(ctx, msg.CommunityID, msg.AuthorID)
	if err != nil {
		return nil, oops.With("command", h.command).Wrapf(err, "resolve invoking member")
	}
	if !member.HasPermission(h.permission) {
		return ErrPermissionDenied(h.command, h.permission, member.Level()), nil
	}
	if !h.restriction.Permits(msg.ChannelSensitive) {
		return ErrRestrictionViolation(h.command, h.restriction), nil
	}
	if h.requiresConnection && !env.connected(ctx, msg.CommunityID) {
		return ErrPreconditionFailed(h.command), nil
	}
	return nil, nil
}

// notify delivers the denial text. Connection failures reply to the message;
// the other denials are posted to the channel.
func (h *CommandHandler) notify(ctx context.Context, env *Env, msg Message, denial error) error {
	text := NoticeText(denial)
	if errutil.HasCode(denial, CodePreconditionFailed) {
		return env.Replies.SendReply(ctx, msg, text)
	}
	return env.Replies.SendNotice(ctx, msg.ChannelID, text)
}
