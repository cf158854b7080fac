// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for handler invocation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Dispatches is the counter for dispatched events per kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var Dispatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holobot_dispatch_total",
		Help: "Total number of dispatched events",
	},
	[]string{"kind"},
)

// HandlerInvocations is the counter for handler callbacks that ran.
var HandlerInvocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holobot_handler_invocations_total",
		Help: "Total number of handler invocations",
	},
	[]string{"kind", "status"},
)

// GuardDenials is the counter for commands refused by the guard chain.
var GuardDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holobot_guard_denials_total",
		Help: "Total number of commands denied by a guard",
	},
	[]string{"command", "reason"},
)

// HandlerDuration is the histogram for handler execution duration.
var HandlerDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holobot_handler_duration_seconds",
		Help:    "Handler execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// RegisterMetrics registers event package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Dispatches)
	reg.MustRegister(HandlerInvocations)
	reg.MustRegister(GuardDenials)
	reg.MustRegister(HandlerDuration)
}

func recordDispatch(kind Kind) {
	Dispatches.WithLabelValues(kind.String()).Inc()
}

func recordInvocation(kind Kind, status string, d time.Duration) {
	HandlerInvocations.WithLabelValues(kind.String(), status).Inc()
	HandlerDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

func recordGuardDenial(command, reason string) {
	GuardDenials.WithLabelValues(command, reason).Inc()
}
