/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics for the HTTP surface and the
// dialogue pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodify_api_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moodify_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moodify_api_active_connections",
		Help: "Number of in-flight HTTP requests.",
	})

	// RecommendationsTotal counts recommendations by outcome
	// (served, no_match).
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodify_recommendations_total",
		Help: "Recommendation engine outcomes.",
	}, []string{"outcome"})

	// QuestionsAskedTotal counts clarification questions by preference field.
	QuestionsAskedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodify_questions_asked_total",
		Help: "Clarification questions asked, by preference field.",
	}, []string{"field"})

	// FeedbackTotal counts feedback turns by verdict (positive, negative).
	FeedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodify_feedback_total",
		Help: "Feedback turns by verdict.",
	}, []string{"verdict"})

	// SessionResetsTotal counts explicit session resets.
	SessionResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodify_session_resets_total",
		Help: "Explicit session resets.",
	})

	// ActiveSessions tracks the number of live sessions in the store.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moodify_active_sessions",
		Help: "Sessions currently held in memory.",
	})

	// CollaboratorFailuresTotal counts degraded external collaborator calls
	// (extract, render, spotify).
	CollaboratorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodify_collaborator_failures_total",
		Help: "External collaborator calls that fell back to local defaults.",
	}, []string{"collaborator"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
