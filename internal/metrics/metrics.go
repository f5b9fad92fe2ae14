// Package metrics provides Prometheus metrics for cqlmap
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeFound   = "found"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds all Prometheus metrics for cqlmap.
// A nil *Collector is valid and records nothing.
type Collector struct {
	UserTypeResolutions   *prometheus.CounterVec
	QueryCreations        *prometheus.CounterVec
	QueryCreationFailures *prometheus.CounterVec
	StatementsTotal       *prometheus.CounterVec
	StatementDuration     *prometheus.HistogramVec
}

// New creates the collector and registers it with reg
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		UserTypeResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cqlmap_udt_resolutions_total",
				Help: "Total number of user-defined type lookups by outcome",
			},
			[]string{"outcome"},
		),
		QueryCreations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cqlmap_query_creations_total",
				Help: "Total number of derived query constructions by outcome",
			},
			[]string{"outcome"},
		),
		QueryCreationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cqlmap_query_creation_failures_total",
				Help: "Derived query construction failures by cause",
			},
			[]string{"cause"},
		),
		StatementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cqlmap_statements_total",
				Help: "Total number of executed statements",
			},
			[]string{"kind", "status"},
		),
		StatementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cqlmap_statement_duration_seconds",
				Help:    "Duration of executed statements in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),
	}

	collectors := []prometheus.Collector{
		c.UserTypeResolutions,
		c.QueryCreations,
		c.QueryCreationFailures,
		c.StatementsTotal,
		c.StatementDuration,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordUserTypeResolution counts a UDT lookup
func (c *Collector) RecordUserTypeResolution(outcome string) {
	if c == nil {
		return
	}
	c.UserTypeResolutions.WithLabelValues(outcome).Inc()
}

// RecordQueryCreation counts a successful derived query construction
func (c *Collector) RecordQueryCreation() {
	if c == nil {
		return
	}
	c.QueryCreations.WithLabelValues(OutcomeSuccess).Inc()
}

// RecordQueryCreationFailure counts a failed construction with its cause
func (c *Collector) RecordQueryCreationFailure(cause string) {
	if c == nil {
		return
	}
	c.QueryCreations.WithLabelValues(OutcomeFailure).Inc()
	c.QueryCreationFailures.WithLabelValues(cause).Inc()
}

// RecordStatement records an executed statement
func (c *Collector) RecordStatement(kind string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}
	c.StatementsTotal.WithLabelValues(kind, status).Inc()
	c.StatementDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
