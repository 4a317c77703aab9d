// Package metrics exports Prometheus counters for stake instruction execution.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stakesim"

// Recorder registers its collectors on a private registry rather than
// prometheus.DefaultRegisterer.
type Recorder struct {
	registry     *prometheus.Registry
	instructions *prometheus.CounterVec
	computeUnits prometheus.Histogram
	scenarios    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.instructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Stake instructions executed, by instruction and result.",
		},
		[]string{"instruction", "result"},
	)
	r.computeUnits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_units",
			Help:      "Compute units consumed per stake instruction.",
			Buckets:   []float64{0, 750, 1500, 3000, 6000},
		},
	)
	r.scenarios = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Scenarios run, by outcome.",
		},
		[]string{"outcome"},
	)

	r.registry.MustRegister(r.instructions, r.computeUnits, r.scenarios)
	return r
}

// ObserveInstruction is a no-op on a nil Recorder.
func (r *Recorder) ObserveInstruction(instruction string, result string, computeUnits uint64) {
	if r == nil {
		return
	}
	r.instructions.WithLabelValues(instruction, result).Inc()
	r.computeUnits.Observe(float64(computeUnits))
}

func (r *Recorder) ObserveScenario(passed bool) {
	if r == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	r.scenarios.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
