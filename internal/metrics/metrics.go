// Package metrics exposes the execution core's step loop to Prometheus,
// the same instrumentation dependency the wider Optimism monorepo standardises
// on for every long-running service. Recording is optional: Noop satisfies
// Recorder for callers (tests, one-shot CLI runs) that don't want a
// registry.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the subset of step-loop observability cmd/rv64core reports
// into; session.Driver and exec.Executor take no Recorder.
type Recorder interface {
	StepExecuted(mnemonic string)
	SegmentCompleted(steps uint64)
	Halted(code uint32)
	Faulted(reason string)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) StepExecuted(string)      {}
func (Noop) SegmentCompleted(uint64)  {}
func (Noop) Halted(uint32)            {}
func (Noop) Faulted(string)           {}

// Prometheus records step-loop activity into a dedicated registry. The
// zero value is not usable; construct with New.
type Prometheus struct {
	steps    *prometheus.CounterVec
	halts    *prometheus.CounterVec
	faults   *prometheus.CounterVec
	segSteps prometheus.Counter
}

// New registers the execution core's metrics under reg and returns a
// Recorder backed by them.
func New(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv64core",
			Name:      "instructions_executed_total",
			Help:      "Number of instructions executed, by mnemonic.",
		}, []string{"mnemonic"}),
		halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv64core",
			Name:      "halts_total",
			Help:      "Number of segments that ended in a guest halt, by exit code.",
		}, []string{"code"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rv64core",
			Name:      "faults_total",
			Help:      "Number of steps that ended in a fault, by reason.",
		}, []string{"reason"}),
	}
	segSteps := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rv64core",
		Name:      "segment_steps_total",
		Help:      "Cumulative instruction count across completed segments.",
	})
	p.segSteps = segSteps

	reg.MustRegister(p.steps, p.halts, p.faults, segSteps)
	return p
}

func (p *Prometheus) StepExecuted(mnemonic string) {
	p.steps.WithLabelValues(mnemonic).Inc()
}

func (p *Prometheus) SegmentCompleted(steps uint64) {
	p.segSteps.Add(float64(steps))
}

func (p *Prometheus) Halted(code uint32) {
	p.halts.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

func (p *Prometheus) Faulted(reason string) {
	p.faults.WithLabelValues(reason).Inc()
}
