// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bot connects inbound platform events to the handler registry.
//
// A message is dispatched in up to three phases: the before-command message
// handlers, the command handlers when the content starts with the prefix, and
// the after-command message handlers. Reactions and membership changes go
// straight to their collections. Run processes independent events
// concurrently, bounded by the configured worker count.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/logging"
	"github.com/holomush/holobot/internal/observability"
	"github.com/holomush/holobot/pkg/errutil"
)

// DefaultWorkers bounds concurrent event processing when no option sets it.
const DefaultWorkers = 8

// Reasons an inbound event is dropped before dispatch.
const (
	dropSelf      = "self"
	dropMalformed = "malformed"
)

// PrefixStore persists a new command prefix.
type PrefixStore func(ctx context.Context, prefix string) error

// Inbound is one event received from the platform. Exactly the payload field
// matching Kind is set.
type Inbound struct {
	Kind     event.Kind
	Message  *event.Message
	Reaction *event.Reaction
	Member   *event.MemberChange
}

// Bot owns the handler registry and routes inbound events into it.
type Bot struct {
	env      *event.Env
	events   *event.Events
	prefix   atomic.Value
	prefixMu sync.Mutex // serializes persisting and switching the prefix
	selfID   directory.ID
	workers  int
	store    PrefixStore
	disabled func(string) bool
	metrics  *observability.Metrics
	logger   *slog.Logger
	running  atomic.Bool
}

// Option configures a Bot.
type Option func(*Bot)

// WithSelfID sets the bot's own user id; messages it authored are ignored.
func WithSelfID(id directory.ID) Option {
	return func(b *Bot) { b.selfID = id }
}

// WithWorkers bounds how many events Run processes at once.
func WithWorkers(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithPrefixStore sets where the prefix command persists a new prefix.
func WithPrefixStore(store PrefixStore) Option {
	return func(b *Bot) { b.store = store }
}

// WithDisabledCommands skips registering built-in commands the predicate matches.
func WithDisabledCommands(disabled func(string) bool) Option {
	return func(b *Bot) { b.disabled = disabled }
}

// WithMetrics records inbound event counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// New creates a bot over env and registers the built-in commands.
func New(env *event.Env, prefix string, opts ...Option) (*Bot, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	events, err := event.NewEvents(env)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		env:     env,
		events:  events,
		workers: DefaultWorkers,
		logger:  env.Logger,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.prefix.Store(prefix)
	for _, opt := range opts {
		opt(b)
	}

	if err := b.registerBuiltins(); err != nil {
		return nil, err
	}
	return b, nil
}

func validatePrefix(prefix string) error {
	if prefix == "" || strings.ContainsFunc(prefix, isSpace) {
		return oops.Code(event.CodeInvalidHandler).
			With("prefix", prefix).
			Errorf("command prefix must be non-empty and contain no whitespace")
	}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Events returns the handler registry so callers can add their own handlers.
func (b *Bot) Events() *event.Events {
	return b.events
}

// Directory returns the entity directory.
func (b *Bot) Directory() *directory.Directory {
	return b.env.Directory
}

// Prefix returns the current command prefix.
func (b *Bot) Prefix() string {
	return b.prefix.Load().(string) //nolint:forcetypeassert // only strings are stored
}

// SetPrefix changes the command prefix in memory.
func (b *Bot) SetPrefix(prefix string) error {
	if err := validatePrefix(prefix); err != nil {
		return err
	}
	b.prefix.Store(prefix)
	return nil
}

// Ready reports whether Run is consuming events.
func (b *Bot) Ready() bool {
	return b.running.Load()
}

// HandleMessage runs the message phases for msg. Messages from the bot itself
// are ignored. The command phase runs only when the content starts with the
// prefix; both message phases always run.
func (b *Bot) HandleMessage(ctx context.Context, msg event.Message) error {
	if b.selfID != 0 && msg.AuthorID == b.selfID {
		b.drop(dropSelf)
		return nil
	}

	if err := b.events.Process(ctx, event.KindMessage, event.MessageDispatch{Message: msg}); err != nil {
		return err
	}
	if prefix := b.Prefix(); strings.HasPrefix(msg.Content, prefix) {
		if err := b.events.Process(ctx, event.KindCommand, event.CommandDispatch{Message: msg, Prefix: prefix}); err != nil {
			return err
		}
	}
	return b.events.Process(ctx, event.KindMessage, event.MessageDispatch{Message: msg, AfterCommand: true})
}

// Handle routes one inbound event. Each call gets its own dispatch id for logging.
func (b *Bot) Handle(ctx context.Context, in Inbound) error {
	ctx = logging.WithDispatchID(ctx, ulid.Make().String())
	if b.metrics != nil {
		b.metrics.EventsReceived.WithLabelValues(in.Kind.String()).Inc()
	}

	switch in.Kind {
	case event.KindMessage:
		if in.Message == nil {
			return b.malformed(in)
		}
		return b.HandleMessage(ctx, *in.Message)
	case event.KindReactionAdd:
		if in.Reaction == nil {
			return b.malformed(in)
		}
		return b.events.Process(ctx, in.Kind, event.ReactionDispatch{Reaction: *in.Reaction})
	case event.KindMemberJoin, event.KindMemberRemove:
		if in.Member == nil {
			return b.malformed(in)
		}
		return b.events.Process(ctx, in.Kind, event.MemberDispatch{Change: *in.Member})
	case event.KindCommand:
		// Commands are derived from messages; the platform never sends one.
		return b.malformed(in)
	default:
		return b.events.Process(ctx, in.Kind, nil)
	}
}

func (b *Bot) malformed(in Inbound) error {
	b.drop(dropMalformed)
	return oops.Code(event.CodePayloadMismatch).
		With("kind", in.Kind.String()).
		Errorf("inbound %s event carries no matching payload", in.Kind)
}

func (b *Bot) drop(reason string) {
	if b.metrics != nil {
		b.metrics.EventsDropped.WithLabelValues(reason).Inc()
	}
}

// Run handles events from in until in is closed or ctx is done, then waits for
// in-flight events to finish. Failures are logged per event and never stop the
// loop.
func (b *Bot) Run(ctx context.Context, in <-chan Inbound) error {
	if !b.running.CompareAndSwap(false, true) {
		return oops.Errorf("bot is already running")
	}
	defer b.running.Store(false)

	var g errgroup.Group
	g.SetLimit(b.workers)
	b.logger.InfoContext(ctx, "bot started", "workers", b.workers, "prefix", b.Prefix())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-in:
			if !ok {
				break loop
			}
			g.Go(func() error {
				if err := b.Handle(ctx, ev); err != nil {
					errutil.LogError(ctx, b.logger, "event handling failed", err, "kind", ev.Kind.String())
				}
				return nil
			})
		}
	}

	err := g.Wait()
	b.logger.InfoContext(ctx, "bot stopped")
	return err //nolint:wrapcheck // workers never return errors
}
