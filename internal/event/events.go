// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package event routes platform events to registered handlers.
//
// Events owns one Collection per implemented Kind. Registration builds the handler
// variant for the kind, and dispatch runs the kind's collection sequentially. The
// command variant gates its callback behind the guard chain: name match, then
// permission, content restriction, and connection checks.
package event

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Events is the top-level handler registry.
type Events struct {
	env         *Env
	collections map[Kind]*Collection
}

// NewEvents creates a registry with an empty collection per implemented kind.
func NewEvents(env *Env) (*Events, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	e := &Events{env: env, collections: make(map[Kind]*Collection)}
	for _, k := range Kinds() {
		if k.Implemented() {
			e.collections[k] = newCollection(k, env)
		}
	}
	return e, nil
}

// Env returns the environment shared with handlers.
func (e *Events) Env() *Env {
	return e.env
}

// Collection returns the collection for kind, or nil when kind is not implemented.
func (e *Events) Collection(kind Kind) *Collection {
	return e.collections[kind]
}

// Add registers callback for kind. The callback must be the variant's callback type
// for the kind (MessageFunc, CommandFunc, ReactionFunc, or MemberFunc) or an
// unnamed func of the same signature. Unknown kinds fail with UNKNOWN_EVENT_KIND
// and recognized but unimplemented kinds with UNIMPLEMENTED_EVENT_KIND.
func (e *Events) Add(kind Kind, callback any, opts ...Option) (Handler, error) {
	if !kind.Known() {
		return nil, ErrUnknownEventKind(int(kind))
	}
	coll, ok := e.collections[kind]
	if !ok {
		return nil, ErrUnimplementedEventKind(kind)
	}
	h, err := newHandler(kind, callback, opts)
	if err != nil {
		return nil, err
	}
	if err := coll.Add(h); err != nil {
		return nil, err
	}

	attrs := []any{slog.String("kind", kind.String())}
	if ch, ok := h.(*CommandHandler); ok {
		attrs = append(attrs,
			slog.String("command", ch.Command()),
			slog.String("permission", ch.Permission().String()))
	}
	e.env.logger().Info("registered event handler", attrs...)
	return h, nil
}

// AddNamed registers callback under a kind name such as "on_message".
func (e *Events) AddNamed(name string, callback any, opts ...Option) (Handler, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return e.Add(kind, callback, opts...)
}

// OnMessage registers a message handler for the before-command phase, or the
// after-command phase when AfterCommand is passed.
func (e *Events) OnMessage(fn MessageFunc, opts ...Option) (*MessageHandler, error) {
	h, err := e.Add(KindMessage, fn, opts...)
	if err != nil {
		return nil, err
	}
	return h.(*MessageHandler), nil
}

// OnCommand registers a command handler.
func (e *Events) OnCommand(name string, fn CommandFunc, opts ...Option) (*CommandHandler, error) {
	h, err := e.Add(KindCommand, fn, append([]Option{WithCommand(name)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return h.(*CommandHandler), nil
}

// OnReactionAdd registers a reaction handler.
func (e *Events) OnReactionAdd(fn ReactionFunc) (*ReactionHandler, error) {
	h, err := e.Add(KindReactionAdd, fn)
	if err != nil {
		return nil, err
	}
	return h.(*ReactionHandler), nil
}

// OnMemberJoin registers a member-join handler.
func (e *Events) OnMemberJoin(fn MemberFunc) (*MemberHandler, error) {
	h, err := e.Add(KindMemberJoin, fn)
	if err != nil {
		return nil, err
	}
	return h.(*MemberHandler), nil
}

// OnMemberRemove registers a member-remove handler.
func (e *Events) OnMemberRemove(fn MemberFunc) (*MemberHandler, error) {
	h, err := e.Add(KindMemberRemove, fn)
	if err != nil {
		return nil, err
	}
	return h.(*MemberHandler), nil
}

// Process dispatches p to the collection for kind. Unknown and unimplemented kinds
// fail; a kind with no handlers is a no-op.
func (e *Events) Process(ctx context.Context, kind Kind, p Payload) (err error) {
	if !kind.Known() {
		return ErrUnknownEventKind(int(kind))
	}
	coll, ok := e.collections[kind]
	if !ok {
		return ErrUnimplementedEventKind(kind)
	}

	ctx, span := tracer.Start(ctx, "event.process",
		trace.WithAttributes(
			attribute.String("event.kind", kind.String()),
			attribute.Int("event.handlers", coll.Len()),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	recordDispatch(kind)
	return coll.Process(ctx, p)
}

// Dispatch resolves a kind name and dispatches p to it. Names that match no kind
// fail with UNKNOWN_EVENT_KIND.
func (e *Events) Dispatch(ctx context.Context, name string, p Payload) error {
	kind, err := ParseKind(name)
	if err != nil {
		return err
	}
	return e.Process(ctx, kind, p)
}
