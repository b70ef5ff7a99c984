package anvil

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var worldSequence atomic.Uint64

// metrics are registered per world, under a constant "world" label unique to
// the process, so worlds may share a registerer.
type metrics struct {
	world      string
	registerer prometheus.Registerer
	collectors []prometheus.Collector

	stepDuration prometheus.Histogram
	pairs        prometheus.Gauge
	contacts     prometheus.Gauge
	islands      prometheus.Gauge
	awakeBodies  prometheus.Gauge
	brokenJoints prometheus.Counter
	epaFallbacks prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	world := strconv.FormatUint(worldSequence.Add(1), 10)
	m := &metrics{
		world:      world,
		registerer: prometheus.WrapRegistererWith(prometheus.Labels{"world": world}, reg),
	}

	var err error
	if m.stepDuration, err = register(m, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "anvil_step_duration_seconds",
		Help:    "Time spent simulating one step, substeps included",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})); err != nil {
		return nil, err
	}
	if m.pairs, err = register(m, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anvil_broadphase_pairs",
		Help: "Candidate pairs produced by the broad phase in the last substep",
	})); err != nil {
		return nil, err
	}
	if m.contacts, err = register(m, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anvil_contact_constraints",
		Help: "Contact constraints solved in the last substep",
	})); err != nil {
		return nil, err
	}
	if m.islands, err = register(m, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anvil_islands",
		Help: "Islands solved in the last substep",
	})); err != nil {
		return nil, err
	}
	if m.awakeBodies, err = register(m, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anvil_awake_bodies",
		Help: "Dynamic actors awake after the last step",
	})); err != nil {
		return nil, err
	}
	if m.brokenJoints, err = register(m, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anvil_broken_joints_total",
		Help: "Joints broken by exceeding their break force or torque",
	})); err != nil {
		return nil, err
	}
	if m.epaFallbacks, err = register(m, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anvil_epa_unconverged_total",
		Help: "Penetrations estimated after EPA failed to converge",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to the registerer. On failure the collectors already
// registered are removed.
func register[C prometheus.Collector](m *metrics, c C) (C, error) {
	if err := m.registerer.Register(c); err != nil {
		m.unregister()
		return c, err
	}
	m.collectors = append(m.collectors, c)
	return c, nil
}

func (m *metrics) unregister() {
	for _, c := range m.collectors {
		m.registerer.Unregister(c)
	}
	m.collectors = nil
}
