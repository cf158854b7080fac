// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holobot/pkg/errutil"
)

// Collection is the ordered handler list for one event kind.
// It is safe for concurrent use; a dispatch sees the handlers registered before it
// started.
type Collection struct {
	kind     Kind
	env      *Env
	mu       sync.RWMutex
	handlers []Handler
}

func newCollection(kind Kind, env *Env) *Collection {
	return &Collection{kind: kind, env: env}
}

// Kind returns the event kind the collection serves.
func (c *Collection) Kind() Kind {
	return c.kind
}

// Add appends a handler. The handler must serve the collection's kind.
func (c *Collection) Add(h Handler) error {
	if h == nil {
		return ErrInvalidHandler(c.kind, "handler is nil")
	}
	if h.Kind() != c.kind {
		return oops.Code(CodeInvalidHandler).
			With("kind", c.kind.String()).
			With("handler_kind", h.Kind().String()).
			Errorf("a %s handler cannot join the %s collection", h.Kind(), c.kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
	return nil
}

// Len returns the number of registered handlers.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Handlers returns a copy of the handler list in registration order.
func (c *Collection) Handlers() []Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Handler, len(c.handlers))
	copy(out, c.handlers)
	return out
}

// Process runs every handler in registration order, each to completion before the
// next starts. A failing handler is logged and counted; the remaining handlers
// still run. Only a payload that does not belong to the kind is returned as an
// error.
func (c *Collection) Process(ctx context.Context, p Payload) error {
	if p == nil || !p.accepts(c.kind) {
		return ErrPayloadMismatch(c.kind, p)
	}

	for _, h := range c.Handlers() {
		start := time.Now()
		invoked, err := c.execute(ctx, h, p)
		if !invoked && err == nil {
			continue
		}

		status := StatusSuccess
		if err != nil {
			status = StatusError
			errutil.LogError(ctx, c.env.logger(), "event handler failed", err,
				slog.String("kind", c.kind.String()))
		}
		recordInvocation(c.kind, status, time.Since(start))
	}
	return nil
}

// execute runs one handler. A panic in the callback becomes a HANDLER_PANIC error
// so it is isolated like any other handler failure.
func (c *Collection) execute(ctx context.Context, h Handler, p Payload) (invoked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			invoked = true
			err = oops.Code(CodeHandlerPanic).
				With("kind", c.kind.String()).
				With("stack", string(debug.Stack())).
				Errorf("event handler panicked: %v", r)
		}
	}()
	return h.execute(ctx, c.env, p)
}
