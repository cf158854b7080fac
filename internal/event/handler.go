// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"context"

	"github.com/holomush/holobot/internal/trust"
)

// Callback shapes, one per variant.
type (
	// MessageFunc handles a plain message.
	MessageFunc func(ctx context.Context, msg Message) error

	// CommandFunc handles a command; args is the whitespace-split remainder of the
	// content after prefix and command name.
	CommandFunc func(ctx context.Context, msg Message, args []string) error

	// ReactionFunc handles a reaction.
	ReactionFunc func(ctx context.Context, reaction Reaction) error

	// MemberFunc handles a membership change.
	MemberFunc func(ctx context.Context, change MemberChange) error
)

// Handler is one registered reaction to one event kind. The variant set is closed:
// MessageHandler, CommandHandler, ReactionHandler, and MemberHandler.
//
// execute evaluates the variant's applicability predicate. A miss returns
// (false, nil) with no side effects. Otherwise the callback runs to completion and
// its error is returned.
type Handler interface {
	Kind() Kind
	execute(ctx context.Context, env *Env, p Payload) (invoked bool, err error)
}

// MessageHandler fires for the middleware phase it was registered for.
type MessageHandler struct {
	fn           MessageFunc
	afterCommand bool
}

// Kind implements Handler.
func (h *MessageHandler) Kind() Kind { return KindMessage }

// AfterCommand reports the phase the handler fires in.
func (h *MessageHandler) AfterCommand() bool { return h.afterCommand }

func (h *MessageHandler) execute(ctx context.Context, _ *Env, p Payload) (bool, error) {
	d, ok := p.(MessageDispatch)
	if !ok {
		return false, ErrPayloadMismatch(KindMessage, p)
	}
	if d.AfterCommand != h.afterCommand {
		return false, nil
	}
	return true, h.fn(ctx, d.Message)
}

// CommandHandler fires for messages naming its command and runs the guard chain
// before the callback.
type CommandHandler struct {
	fn                 CommandFunc
	command            string
	permission         trust.Level
	restriction        trust.Restriction
	requiresConnection bool
}

// Kind implements Handler.
func (h *CommandHandler) Kind() Kind { return KindCommand }

// Command returns the command name.
func (h *CommandHandler) Command() string { return h.command }

// Permission returns the required trust level.
func (h *CommandHandler) Permission() trust.Level { return h.permission }

// Restriction returns the content restriction.
func (h *CommandHandler) Restriction() trust.Restriction { return h.restriction }

// RequiresConnection reports whether the command needs an active connection.
func (h *CommandHandler) RequiresConnection() bool { return h.requiresConnection }

// ReactionHandler fires for every reaction-add dispatch.
type ReactionHandler struct {
	fn ReactionFunc
}

// Kind implements Handler.
func (h *ReactionHandler) Kind() Kind { return KindReactionAdd }

func (h *ReactionHandler) execute(ctx context.Context, _ *Env, p Payload) (bool, error) {
	d, ok := p.(ReactionDispatch)
	if !ok {
		return false, ErrPayloadMismatch(KindReactionAdd, p)
	}
	return true, h.fn(ctx, d.Reaction)
}

// MemberHandler fires for every join or remove dispatch of its kind.
type MemberHandler struct {
	kind Kind
	fn   MemberFunc
}

// Kind implements Handler.
func (h *MemberHandler) Kind() Kind { return h.kind }

func (h *MemberHandler) execute(ctx context.Context, _ *Env, p Payload) (bool, error) {
	d, ok := p.(MemberDispatch)
	if !ok {
		return false, ErrPayloadMismatch(h.kind, p)
	}
	return true, h.fn(ctx, d.Change)
}

// Option configures a handler at registration.
type Option func(*handlerOptions)

type handlerOptions struct {
	command            *string
	permission         *trust.Level
	restriction        *trust.Restriction
	requiresConnection bool
	afterCommand       bool
}

// WithCommand sets the command name of a command handler.
func WithCommand(name string) Option {
	return func(o *handlerOptions) { o.command = &name }
}

// WithPermission sets the trust level a command requires. Defaults to trust.Default.
func WithPermission(level trust.Level) Option {
	return func(o *handlerOptions) { o.permission = &level }
}

// WithRestriction sets the content restriction of a command. Defaults to none.
func WithRestriction(r trust.Restriction) Option {
	return func(o *handlerOptions) { o.restriction = &r }
}

// RequiringConnection marks a command as needing an active connection in the
// originating community.
func RequiringConnection() Option {
	return func(o *handlerOptions) { o.requiresConnection = true }
}

// AfterCommand registers a message handler for the after-command phase.
func AfterCommand() Option {
	return func(o *handlerOptions) { o.afterCommand = true }
}

// newHandler builds the variant for kind. callback must be the variant's callback
// type or an unnamed func with the same signature.
func newHandler(kind Kind, callback any, opts []Option) (Handler, error) {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}

	commandOnly := o.command != nil || o.permission != nil || o.restriction != nil || o.requiresConnection
	if kind != KindCommand && commandOnly {
		return nil, ErrInvalidHandler(kind, "command options apply only to command handlers")
	}
	if kind != KindMessage && o.afterCommand {
		return nil, ErrInvalidHandler(kind, "the after-command phase applies only to message handlers")
	}

	switch kind {
	case KindMessage:
		fn, ok := asMessageFunc(callback)
		if !ok {
			return nil, ErrInvalidCallback(kind, callback)
		}
		return &MessageHandler{fn: fn, afterCommand: o.afterCommand}, nil

	case KindCommand:
		fn, ok := asCommandFunc(callback)
		if !ok {
			return nil, ErrInvalidCallback(kind, callback)
		}
		return newCommandHandler(fn, o)

	case KindReactionAdd:
		fn, ok := asReactionFunc(callback)
		if !ok {
			return nil, ErrInvalidCallback(kind, callback)
		}
		return &ReactionHandler{fn: fn}, nil

	case KindMemberJoin, KindMemberRemove:
		fn, ok := asMemberFunc(callback)
		if !ok {
			return nil, ErrInvalidCallback(kind, callback)
		}
		return &MemberHandler{kind: kind, fn: fn}, nil

	default:
		if kind.Known() {
			return nil, ErrUnimplementedEventKind(kind)
		}
		return nil, ErrUnknownEventKind(int(kind))
	}
}

func newCommandHandler(fn CommandFunc, o handlerOptions) (*CommandHandler, error) {
	if o.command == nil {
		return nil, ErrInvalidHandler(KindCommand, "a command name is required")
	}
	if err := ValidateCommandName(*o.command); err != nil {
		return nil, err
	}
	h := &CommandHandler{
		fn:                 fn,
		command:            *o.command,
		permission:         trust.Default,
		restriction:        trust.RestrictionNone,
		requiresConnection: o.requiresConnection,
	}
	if o.permission != nil {
		if !o.permission.Valid() {
			return nil, ErrInvalidHandler(KindCommand, "unknown permission level "+o.permission.String())
		}
		h.permission = *o.permission
	}
	if o.restriction != nil {
		if !o.restriction.Valid() {
			return nil, ErrInvalidHandler(KindCommand, "unknown restriction "+o.restriction.String())
		}
		h.restriction = *o.restriction
	}
	return h, nil
}

func asMessageFunc(cb any) (MessageFunc, bool) {
	switch fn := cb.(type) {
	case MessageFunc:
		return fn, fn != nil
	case func(context.Context, Message) error:
		return fn, fn != nil
	}
	return nil, false
}

func asCommandFunc(cb any) (CommandFunc, bool) {
	switch fn := cb.(type) {
	case CommandFunc:
		return fn, fn != nil
	case func(context.Context, Message, []string) error:
		return fn, fn != nil
	}
	return nil, false
}

func asReactionFunc(cb any) (ReactionFunc, bool) {
	switch fn := cb.(type) {
	case ReactionFunc:
		return fn, fn != nil
	case func(context.Context, Reaction) error:
		return fn, fn != nil
	}
	return nil, false
}

func asMemberFunc(cb any) (MemberFunc, bool) {
	switch fn := cb.(type) {
	case MemberFunc:
		return fn, fn != nil
	case func(context.Context, MemberChange) error:
		return fn, fn != nil
	}
	return nil, false
}
