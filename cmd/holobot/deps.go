// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/config"
	"github.com/holomush/holobot/internal/observability"
)

// RunDeps contains injectable dependencies for the run command.
// All fields with nil values will use their default implementations.
type RunDeps struct {
	// BackendOpener opens the member store.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (MemberBackend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, opts ...observability.Option) ObservabilityServer

	// EventsOpener opens the inbound event stream. "-" means stdin.
	// Default: openEvents
	EventsOpener func(path string, stdin io.Reader) (io.ReadCloser, error)
}

func (d *RunDeps) withDefaults() *RunDeps {
	out := RunDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendOpener == nil {
		out.BackendOpener = openBackend
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, opts...)
		}
	}
	if out.EventsOpener == nil {
		out.EventsOpener = openEvents
	}
	return &out
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func openEvents(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied event log
	if err != nil {
		return nil, oops.Code("EVENTS_OPEN_FAILED").With("path", path).Wrap(err)
	}
	return f, nil
}
