package skysched

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the scheduler's counters/histograms: scans
// committed/discarded, fill-in scans committed, empty subcons,
// candidate-set size per subcon, and wall time per subcon iteration. Grounded on
// app/plot's prometheus.GaugeVec wiring (OutMetrics/OutSolMetrics),
// generalized from one ad hoc gauge per run to a registered collector
// set a long-running scheduler process can expose continuously.
type Metrics struct {
	ScansCommitted  prometheus.Counter
	ScansDiscarded  prometheus.Counter
	FillinCommitted prometheus.Counter
	EmptySubcons    prometheus.Counter

	CandidateSetSize prometheus.Histogram
	SubconDuration   prometheus.Histogram
}

// NewMetrics builds and registers a fresh Metrics set against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests) or
// prometheus.DefaultRegisterer to expose via promhttp in a long-running
// process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skysched_scans_committed_total",
			Help: "Number of scans committed to the schedule.",
		}),
		ScansDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skysched_scans_discarded_total",
			Help: "Number of candidate scans dropped by rigorous update.",
		}),
		FillinCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skysched_fillin_scans_committed_total",
			Help: "Number of fill-in scans committed.",
		}),
		EmptySubcons: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skysched_empty_subcons_total",
			Help: "Number of subcon iterations that produced no viable candidate.",
		}),
		CandidateSetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skysched_candidate_set_size",
			Help:    "Number of candidate scans enumerated per subcon iteration.",
			Buckets: prometheus.LinearBuckets(0, 10, 10),
		}),
		SubconDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skysched_subcon_duration_seconds",
			Help:    "Wall time spent enumerating, updating and scoring one subcon.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ScansCommitted, m.ScansDiscarded, m.FillinCommitted, m.EmptySubcons, m.CandidateSetSize, m.SubconDuration)
	return m
}

// Observe copies a finished scheduler run's final counters into the
// cumulative metric set; intended to be called once after Scheduler.Run
// returns (the scheduler itself stays free of any metrics dependency so
// the core package carries no prometheus import in its hot loop, per
// spec.md §5's no-I/O-in-the-core rule).
func (m *Metrics) Observe(stats SchedulerStats) {
	m.ScansCommitted.Add(float64(stats.ScansCommitted))
	m.ScansDiscarded.Add(float64(stats.ScansDiscarded))
	m.FillinCommitted.Add(float64(stats.FillinCommitted))
	m.EmptySubcons.Add(float64(stats.EmptySubcons))
}
