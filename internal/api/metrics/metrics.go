// Package metrics defines and registers all custom Prometheus metrics for
// the dispatch API. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

// ── Load event metrics ────────────────────────────────────────────────────────

// EventsProcessedTotal counts events that completed processing successfully.
// Labels:
//   - status: the new load status applied by the event (e.g. "picked_up")
//   - source: the event source reported by the sender (e.g. "driver_app")
var EventsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of load events successfully processed.",
	},
	[]string{"status", "source"},
)

// EventsErrorsTotal counts events that failed processing.
// Label:
//   - reason: short description of the failure (e.g. "invalid_transition", "load_not_found", "update_failed")
var EventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_errors_total",
		Help:      "Total number of load events that failed processing.",
	},
	[]string{"reason"},
)

// EventsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new event, processed)
var EventsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// EventProcessingDuration measures how long a single event takes to process.
// Label:
//   - status: the resulting load status
var EventProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_processing_duration_seconds",
		Help:      "Duration of event processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"status"},
)

// ── Access control metrics ────────────────────────────────────────────────────

// RouteDenialsTotal counts requests the route guard turned into redirects.
// Label:
//   - reason: "no_session", "unverified_email", "no_profile", "role_denied"
var RouteDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_denials_total",
		Help:      "Total number of navigations redirected by the route guard.",
	},
	[]string{"reason"},
)

// ── Webhook metrics ───────────────────────────────────────────────────────────

// WebhooksReceivedTotal counts inbound webhook deliveries by outcome.
// Labels:
//   - provider: "auth" or "billing"
//   - result: "verified", "rejected", or "unverified" (secret not configured)
var WebhooksReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhooks_received_total",
		Help:      "Total number of webhook deliveries, by provider and verification result.",
	},
	[]string{"provider", "result"},
)

// ── Load metrics ──────────────────────────────────────────────────────────────

// LoadsCreatedTotal counts newly created loads.
// Label:
//   - equipment: equipment type (e.g. "dry_van", "reefer", "flatbed")
var LoadsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_created_total",
		Help:      "Total number of loads created, by equipment type.",
	},
	[]string{"equipment"},
)
