package orchestration

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricsJob is the pushgateway job name runs are pushed under.
const MetricsJob = "kinstall"

// Metrics records run and step outcomes in a private registry so that a
// one-shot CLI run can push them to a Pushgateway at exit.
type Metrics struct {
	registry *prometheus.Registry

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runDuration  prometheus.Gauge
	runExitCode  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kinstall",
				Subsystem: "step",
				Name:      "total",
				Help:      "Number of selected steps by terminal status",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kinstall",
				Subsystem: "step",
				Name:      "duration_seconds",
				Help:      "Duration of executed steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"step", "status"},
		),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kinstall",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of the last run in seconds",
		}),
		runExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kinstall",
			Subsystem: "run",
			Name:      "exit_code",
			Help:      "Exit code of the last run",
		}),
	}

	m.registry.MustRegister(m.stepsTotal, m.stepDuration, m.runDuration, m.runExitCode)
	return m
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Observe records a finished run. A nil Metrics records nothing.
func (m *Metrics) Observe(s *RunSummary) {
	if m == nil || s == nil {
		return
	}
	for _, r := range s.Results {
		m.stepsTotal.WithLabelValues(r.Name, string(r.Status)).Inc()
		if r.Status == StatusSuccess || r.Status == StatusFailed {
			m.stepDuration.WithLabelValues(r.Name, string(r.Status)).Observe(r.Duration.Seconds())
		}
	}
	m.runDuration.Set(s.Duration.Seconds())
	m.runExitCode.Set(float64(s.ExitCode))
}

// Push sends the collected metrics to the Pushgateway at url, grouped by
// run ID.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	if err := push.New(url, MetricsJob).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
