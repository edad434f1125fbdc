/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing
// for the scheduling service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mimir_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_api_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mimir_api_active_connections",
		Help: "In-flight HTTP requests",
	})

	// BookingsTotal counts booking lifecycle transitions by outcome.
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_bookings_total",
		Help: "Booking lifecycle transitions by operation",
	}, []string{"operation"})

	// BookingConflictsTotal counts proposals rejected by the conflict
	// detector, by conflict kind.
	BookingConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_booking_conflicts_total",
		Help: "Booking proposals rejected for a conflict",
	}, []string{"kind"})

	// SlotQueriesTotal counts slot listings by cache outcome.
	SlotQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_slot_queries_total",
		Help: "Slot queries served, by cache outcome",
	}, []string{"cache"})

	// AutoAssignFailuresTotal counts proposals that found no free
	// interviewer.
	AutoAssignFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mimir_auto_assign_failures_total",
		Help: "Auto-assignment attempts with no available interviewer",
	})

	// EventRelayPublishedTotal counts events forwarded to NATS.
	EventRelayPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_event_relay_published_total",
		Help: "Lifecycle events forwarded to the outbound relay",
	}, []string{"event_type"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
