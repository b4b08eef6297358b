// Package metrics holds the prometheus collectors of the threat pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDoHLookup = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_threat_doh_lookup_duration_seconds",
			Help:    "DNS firewall lookup duration by outcome.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"}, // safe, blocked, error
	)
	metricCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_threat_cache_requests_total",
			Help: "Reputation cache requests by result.",
		},
		[]string{"result"}, // hit, miss, error
	)
	metricAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_threat_assessments_total",
			Help: "Message assessments by recommended action.",
		},
		[]string{"action"},
	)
	metricRulesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_threat_rules_fired_total",
			Help: "Header scoring rules fired.",
		},
		[]string{"rule"},
	)
)

// ObserveLookup records one DoH lookup
func ObserveLookup(outcome string, start time.Time) {
	metricDoHLookup.WithLabelValues(outcome).Observe(float64(time.Since(start)) / float64(time.Second))
}

// CacheResult counts one cache request
func CacheResult(result string) {
	metricCacheRequests.WithLabelValues(result).Inc()
}

// Assessment counts one assessed message
func Assessment(action string) {
	metricAssessments.WithLabelValues(action).Inc()
}

// RuleFired counts one fired scoring rule
func RuleFired(rule string) {
	metricRulesFired.WithLabelValues(rule).Inc()
}
