// Package telemetry holds the Prometheus collectors of the materialization
// engine.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts materializations per record type. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	records  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the collectors on reg. Collectors already registered on reg
// (for example by another engine) are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "materia_records_total",
			Help: "Records materialized successfully.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "materia_failures_total",
			Help: "Materializations that failed, by error kind.",
		}, []string{"type", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "materia_materialize_seconds",
			Help:    "Time spent materializing one record.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"type"}),
	}
	var err error
	if m.records, err = register(reg, m.records); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe records one materialization of typ. kind labels the failure and is
// ignored when ok.
func (m *Metrics) Observe(typ string, elapsed time.Duration, ok bool, kind string) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(typ).Observe(elapsed.Seconds())
	if ok {
		m.records.WithLabelValues(typ).Inc()
		return
	}
	m.failures.WithLabelValues(typ, kind).Inc()
}
