// Package metrics defines and registers all custom Prometheus metrics for the
// cartsync client and the cartd reference server. It is the single source of
// truth for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	clientNamespace = "cartsync"
	serverNamespace = "cartd"
)

// ── Client: sync scheduler ────────────────────────────────────────────────────

// SyncPushesTotal counts push attempts that reached the network.
// Labels:
//   - trigger: "debounce", "heartbeat" or "reconcile"
//   - result:  "ok", "unauthorized" or "error"
var SyncPushesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: clientNamespace,
		Name:      "sync_pushes_total",
		Help:      "Total number of cart pushes sent to the server.",
	},
	[]string{"trigger", "result"},
)

// SyncSkippedTotal counts triggers that did not produce a push.
// Label:
//   - reason: "unauthenticated", "empty", "paused" or "in_flight"
var SyncSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: clientNamespace,
		Name:      "sync_skipped_total",
		Help:      "Total number of sync triggers suppressed before reaching the network.",
	},
	[]string{"reason"},
)

// SyncPushDuration measures the network round-trip of a push.
var SyncPushDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: clientNamespace,
		Name:      "sync_push_duration_seconds",
		Help:      "Duration of cart push requests.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Client: reconciliation and auth ───────────────────────────────────────────

// ReconciliationsTotal counts reconciliation passes.
// Label:
//   - outcome: "no_conflict", "push_local", "adopt_server", "conflict_restore",
//     "conflict_keep", "conflict_dismissed" or "unauthorized"
var ReconciliationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: clientNamespace,
		Name:      "reconciliations_total",
		Help:      "Total number of login-time cart reconciliations, by outcome.",
	},
	[]string{"outcome"},
)

// AuthTransitionsTotal counts observed auth state changes.
// Label:
//   - state: "authenticated" or "unauthenticated"
var AuthTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: clientNamespace,
		Name:      "auth_transitions_total",
		Help:      "Total number of auth state transitions observed.",
	},
	[]string{"state"},
)

// ── Server ────────────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts requests served by cartd.
// Labels:
//   - method, route (echo path template), code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: serverNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "code"},
)

// HTTPRequestDuration measures request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: serverNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route"},
)

// CartWritesTotal counts full cart overwrites accepted by cartd.
var CartWritesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: serverNamespace,
		Name:      "cart_writes_total",
		Help:      "Total number of cart overwrites persisted.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: serverNamespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
