// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carenote"

var (
	refinements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refinements_total",
		Help:      "Note refinement attempts by outcome.",
	}, []string{"outcome"})
	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "form_submissions_total",
		Help:      "Form submissions by form type and outcome.",
	}, []string{"form", "outcome"})
	suggestionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestion_lookups_total",
		Help:      "Suggestion lookups by source and result.",
	}, []string{"source", "result"})
	complianceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compliance_checks_total",
		Help:      "Compliance checks by standard and verdict.",
	}, []string{"standard", "verdict"})
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Background jobs handled by type and outcome.",
	}, []string{"type", "outcome"})
	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plan_sessions_open",
		Help:      "Treatment plan sessions currently held in memory.",
	})
)

func RecordRefinement(outcome string) {
	refinements.WithLabelValues(outcome).Inc()
}

func RecordSubmission(form, outcome string) {
	submissions.WithLabelValues(form, outcome).Inc()
}

// RecordSuggestionLookup counts a lookup. result is "hit", "empty" or "error".
func RecordSuggestionLookup(source, result string) {
	suggestionLookups.WithLabelValues(source, result).Inc()
}

func RecordComplianceCheck(standard string, passed bool) {
	verdict := "failed"
	if passed {
		verdict = "passed"
	}
	complianceChecks.WithLabelValues(standard, verdict).Inc()
}

func RecordJob(typ, outcome string) {
	jobsProcessed.WithLabelValues(typ, outcome).Inc()
}

func SetOpenSessions(n int) {
	openSessions.Set(float64(n))
}
