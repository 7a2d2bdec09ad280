package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/rtsched/model"
)

// SimulationCollector exposes simulation-run Prometheus metrics. It
// satisfies core.RunRecorder.
type SimulationCollector struct {
	Runs            *prometheus.CounterVec
	Horizon         prometheus.Histogram
	DroppedJobs     *prometheus.CounterVec
	Utilization     *prometheus.GaugeVec
	CompareDuration prometheus.Histogram
}

// NewSimulationCollector registers simulation metrics against the provided registerer.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsched_simulations_total",
		Help: "Simulation runs, labeled by policy and outcome.",
	}, []string{"policy", "outcome"}), "rtsched_simulations_total")
	if err != nil {
		return nil, err
	}

	horizon, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtsched_simulation_horizon_ticks",
		Help:    "Hyperperiod length of simulated task sets, in ticks.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 11),
	}), "rtsched_simulation_horizon_ticks")
	if err != nil {
		return nil, err
	}

	drops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsched_dropped_jobs_total",
		Help: "Jobs still unfinished at the end of the hyperperiod, labeled by policy.",
	}, []string{"policy"}), "rtsched_dropped_jobs_total")
	if err != nil {
		return nil, err
	}

	util, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rtsched_last_utilization_ratio",
		Help: "Processor utilization of the most recently simulated task set, labeled by policy.",
	}, []string{"policy"}), "rtsched_last_utilization_ratio")
	if err != nil {
		return nil, err
	}

	compare, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtsched_compare_duration_seconds",
		Help:    "Wall-clock duration of multi-policy comparison batches.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "rtsched_compare_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		Runs:            runs,
		Horizon:         horizon,
		DroppedJobs:     drops,
		Utilization:     util,
		CompareDuration: compare,
	}, nil
}

// ObserveRun records the outcome of one simulation.
func (c *SimulationCollector) ObserveRun(policy model.PolicyName, outcome string, horizon int, utilization float64, drops int) {
	if c == nil {
		return
	}
	p := string(policy)
	if p == "" {
		p = "unknown"
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(p, outcome).Inc()
	}
	if c.Horizon != nil && horizon > 0 {
		c.Horizon.Observe(float64(horizon))
	}
	if c.DroppedJobs != nil && drops > 0 {
		c.DroppedJobs.WithLabelValues(p).Add(float64(drops))
	}
	if c.Utilization != nil && utilization > 0 {
		c.Utilization.WithLabelValues(p).Set(utilization)
	}
}

// ObserveCompare records how long a comparison batch took.
func (c *SimulationCollector) ObserveCompare(d time.Duration) {
	if c == nil || c.CompareDuration == nil {
		return
	}
	c.CompareDuration.Observe(d.Seconds())
}
