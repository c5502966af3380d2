// Package metrics defines and registers all custom Prometheus metrics for the
// habit tracker API. It is the single source of truth for metric names,
// labels, and help strings. Metrics register themselves with the default
// registry at init via promauto; HTTP request totals and latencies come from
// the echoprometheus middleware and are not duplicated here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habits"

// ── Account metrics ───────────────────────────────────────────────────────────

// UsersRegisteredTotal counts successfully registered accounts.
var UsersRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of users registered.",
	},
)

// AuthFailuresTotal counts authentication failures by server-side reason.
// The reason label never reaches clients; responses stay uniform.
// Label:
//   - reason: "missing_token", "malformed_token", "invalid_token",
//     "unknown_subject", "inactive_user", "bad_password"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of authentication failures, by reason.",
	},
	[]string{"reason"},
)

// ── Habit metrics ─────────────────────────────────────────────────────────────

// HabitsCreatedTotal counts created habits.
// Label:
//   - frequency: "daily", "weekly", or "monthly"
var HabitsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habits_created_total",
		Help:      "Total number of habits created, by frequency.",
	},
	[]string{"frequency"},
)

// HabitsTrackedTotal counts tracking records written.
var HabitsTrackedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habits_tracked_total",
		Help:      "Total number of habit completions tracked.",
	},
)

// ── Admission metrics ─────────────────────────────────────────────────────────

// RateLimitRejectionsTotal counts requests rejected by the rate limiter.
// Label:
//   - limiter: "global" or "auth"
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"limiter"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events recorded, by action and status.
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Total number of audit events recorded, by action and status.",
	},
	[]string{"action", "status"},
)

// AuditFallbackTotal counts audit events diverted to the fallback log after
// a sink write failure.
var AuditFallbackTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "fallback_total",
		Help:      "Total number of audit events preserved via the fallback log.",
	},
)
