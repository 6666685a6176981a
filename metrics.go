package threadkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "threadkit"

	failureError = "error"
	failurePanic = "panic"
)

// Metrics holds the Prometheus collectors shared by every [Thread] and
// [Poller] configured with [WithMetrics]. Series are labelled by thread
// name, so names should be unique per registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	iterations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	running    *prometheus.GaugeVec
	polls      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. Passing
// nil registers with [prometheus.DefaultRegisterer].
//
// NewMetrics panics if the collectors are already registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		iterations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "thread",
				Name:      "iterations_total",
				Help:      "Total number of function invocations per thread",
			},
			[]string{"thread"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "thread",
				Name:      "failures_total",
				Help:      "Total number of failed iterations per thread, by kind (error, panic)",
			},
			[]string{"thread", "kind"},
		),
		running: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "thread",
				Name:      "running",
				Help:      "Whether the thread's worker is alive (1) or not (0)",
			},
			[]string{"thread"},
		),
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poller",
				Name:      "polls_total",
				Help:      "Total number of scheduled repeats per poller",
			},
			[]string{"thread"},
		),
	}
}

func (m *Metrics) observeIteration(thread string) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(thread).Inc()
}

func (m *Metrics) observeFailure(thread, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(thread, kind).Inc()
}

func (m *Metrics) observePoll(thread string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(thread).Inc()
}

func (m *Metrics) setRunning(thread string, running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.running.WithLabelValues(thread).Set(v)
}
