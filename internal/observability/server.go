// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves the bot's Prometheus metrics and health endpoints.
//
// Readiness is a list of named checks run on every request. The endpoint answers 503
// naming each failing check, so an operator can tell a stopped event loop from an
// unreachable member store.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// DefaultCheckTimeout bounds one readiness request.
const DefaultCheckTimeout = 2 * time.Second

// replyFailures counts reply sink writes that failed. It is package level so
// sinks can record failures without holding the Server.
var replyFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holobot_reply_failures_total",
		Help: "Total number of failed reply sink writes by output kind",
	},
	[]string{"kind"},
)

// RecordReplyFailure increments the reply failure counter.
func RecordReplyFailure(kind string) {
	replyFailures.WithLabelValues(kind).Inc()
}

// Metrics holds the bot's inbound event counters.
type Metrics struct {
	EventsReceived *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
}

// NewMetrics creates and registers the inbound event metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holobot_events_received_total",
				Help: "Total number of inbound platform events by kind",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holobot_events_dropped_total",
				Help: "Total number of inbound events discarded before dispatch by reason",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.EventsReceived, m.EventsDropped, replyFailures)
	return m
}

// Check is one named readiness condition. Run returns nil when it holds.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithChecks adds readiness checks, run in order on every readiness request.
func WithChecks(checks ...Check) Option {
	return func(s *Server) { s.checks = append(s.checks, checks...) }
}

// WithCollectors calls each function with the server registry so other packages
// can add their collectors.
func WithCollectors(register ...func(prometheus.Registerer)) Option {
	return func(s *Server) {
		for _, fn := range register {
			fn(s.registry)
		}
	}
}

// WithCheckTimeout bounds one readiness request.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server exposes /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr         string
	registry     *prometheus.Registry
	metrics      *Metrics
	checks       []Check
	checkTimeout time.Duration
	logger       *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a server listening on addr ("127.0.0.1:9100", ":9100") with
// its own registry holding the Go, process and inbound event collectors.
func NewServer(addr string, opts ...Option) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		addr:         addr,
		registry:     registry,
		metrics:      NewMetrics(registry),
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the server exposes.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Metrics returns the inbound event counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the HTTP routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Start listens and serves in the background. Serve failures after Start returns
// arrive on the returned channel, which is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpSrv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("observability server started", "addr", listener.Addr().String(), "checks", len(s.checks))
	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	httpSrv := s.httpServer
	s.mu.Unlock()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Ready runs every check and returns the failures, keyed by check name in the
// order the checks were added.
func (s *Server) Ready(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	var failed []string
	for _, c := range s.checks {
		if err := c.Run(ctx); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", c.Name, err))
		}
	}
	return failed
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	failed := s.Ready(r.Context())
	if len(failed) == 0 {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	s.logger.Debug("readiness check failed", "failed", failed)
	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("not ready\n" + strings.Join(failed, "\n") + "\n"))
}
