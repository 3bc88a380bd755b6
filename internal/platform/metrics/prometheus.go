package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// TallyCollector is the Prometheus-backed implementation of the tally-engine
// metrics port. Registration is deferred to first use so constructing the
// collector in tests never double-registers against the default registerer.
type TallyCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	tallyRuns     *prometheus.CounterVec
	tallyRounds   prometheus.Histogram
	tallyDuration prometheus.Histogram
}

var _ ports.Metrics = (*TallyCollector)(nil)

// NewTallyCollector creates a Prometheus-backed collector. reg defaults to
// prometheus.DefaultRegisterer and namespace to "astra".
func NewTallyCollector(reg prometheus.Registerer, namespace string) *TallyCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "astra"
	}
	return &TallyCollector{reg: reg, namespace: namespace}
}

func (c *TallyCollector) ensureRegistered() {
	c.once.Do(func() {
		c.tallyRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "tally_engine",
			Name:      "runs_total",
			Help:      "Total tally runs by outcome (success,failure,replayed).",
		}, []string{"outcome"})

		c.tallyRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: "tally_engine",
			Name:      "rounds_per_tally",
			Help:      "Counting rounds needed per completed tally.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		})

		c.tallyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: "tally_engine",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of tally runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		})

		c.reg.MustRegister(c.tallyRuns, c.tallyRounds, c.tallyDuration)
	})
}

func (c *TallyCollector) TallyCompleted(outcome string, rounds int, duration time.Duration) {
	c.ensureRegistered()
	c.tallyRuns.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		c.tallyRounds.Observe(float64(rounds))
	}
	c.tallyDuration.Observe(duration.Seconds())
}
