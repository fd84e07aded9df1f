// Package metrics provides Prometheus instrumentation for the moderation
// service: decision counts by outcome, rule-stage blocks by category,
// classifier call outcomes and latency, and rate limit rejections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decisions counts moderation decisions by resulting record status:
	// "approved", "rejected", or "blocked".
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_moderation_decisions_total",
		Help: "Total moderation decisions by resulting status",
	}, []string{"status"})

	// StageBlocks counts non-approvals by the primary risk category that
	// triggered them (length_exceeded, blocked_keywords, and so on).
	StageBlocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_moderation_stage_blocks_total",
		Help: "Total rejected or blocked comments by primary risk category",
	}, []string{"category"})

	// ClassifierRequests counts classifier calls by outcome: "ok",
	// "parse_error", or "error".
	ClassifierRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_moderation_classifier_requests_total",
		Help: "Total AI classifier calls by outcome",
	}, []string{"outcome"})

	// ClassifierLatency records classifier call latency in seconds.
	ClassifierLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lms_moderation_classifier_latency_seconds",
		Help:    "AI classifier call latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// RateLimited counts advisory pre-checks that told a user to wait.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_moderation_rate_limited_total",
		Help: "Total comment prechecks rejected by the rate limiter",
	})

	// Unbans counts administrative unban operations.
	Unbans = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_moderation_unbans_total",
		Help: "Total unban operations",
	})
)

func init() {
	prometheus.MustRegister(
		Decisions,
		StageBlocks,
		ClassifierRequests,
		ClassifierLatency,
		RateLimited,
		Unbans,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
