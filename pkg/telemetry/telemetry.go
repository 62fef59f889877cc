// Package telemetry exposes the machine's Prometheus metrics: how many
// instructions each training phase's program holds (counted once, when
// TryNew assembles the program) and how long Infer, Loss,
// ComputeGradient and Optimize take. Grounded on the
// prometheus/client_golang dependency the wider example pack pulls in
// for its own metrics and query surfaces.
package telemetry

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tapegraph/neuralmachine/internal/instruction"
)

// Telemetry bundles the counters and histograms a NeuralMachine reports
// against as it assembles and runs a program.
type Telemetry struct {
	instructionsByCategory *prometheus.CounterVec
	operationDuration      *prometheus.HistogramVec
}

// New registers and returns a Telemetry instance. The collectors go to
// the default Prometheus registry; when New runs again in the same
// process (one call per NeuralMachine) it reuses the collectors the
// first call registered, so every machine reports into the same
// metrics. Any other registration error panics.
func New() *Telemetry {
	t := &Telemetry{
		instructionsByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neuralmachine_instructions_total",
			Help: "Instructions assembled into programs, partitioned by training-phase category.",
		}, []string{"category"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neuralmachine_operation_duration_seconds",
			Help:    "Wall-clock duration of each external NeuralMachine operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := prometheus.Register(t.instructionsByCategory); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		t.instructionsByCategory = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := prometheus.Register(t.operationDuration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		t.operationDuration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return t
}

// ObserveProgram records one counter increment per instruction, grouped
// by category.
func (t *Telemetry) ObserveProgram(partitioned map[instruction.Category][]instruction.Instruction) {
	for category, instrs := range partitioned {
		if len(instrs) == 0 {
			continue
		}
		t.instructionsByCategory.WithLabelValues(category.String()).Add(float64(len(instrs)))
	}
}

// Timer returns a func() that, when called, records the elapsed time
// since Timer was called under the given operation label.
func (t *Telemetry) Timer(operation string) func() {
	timer := prometheus.NewTimer(t.operationDuration.WithLabelValues(operation))
	return func() { timer.ObserveDuration() }
}

// Handler returns the HTTP handler applications mount to expose scraped
// metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.Handler()
}
