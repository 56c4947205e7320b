package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"weatherbet/models"
	"weatherbet/service"
)

const namespace = "weatherbet"

// Recorder exports placement and settlement counters to Prometheus
type Recorder struct {
	placed            *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	settled           *prometheus.CounterVec
	observationFailed *prometheus.CounterVec
	sweeps            prometheus.Counter
	sweepDuration     prometheus.Histogram
}

var _ service.MetricsRecorder = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_placed_total",
			Help:      "Bets accepted by the stake gate",
		}, []string{"category"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_rejected_total",
			Help:      "Placements rejected, by reason",
		}, []string{"reason"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_settled_total",
			Help:      "Bets that reached a terminal status",
		}, []string{"status"}),
		observationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observation_failures_total",
			Help:      "Failed weather observation fetches, by reading",
		}, []string{"reading"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed resolution sweeps",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Resolution sweep duration",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{
		r.placed, r.rejected, r.settled, r.observationFailed, r.sweeps, r.sweepDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) BetPlaced(category models.Category) {
	r.placed.WithLabelValues(string(category)).Inc()
}

func (r *Recorder) BetRejected(reason service.ValidationReason) {
	r.rejected.WithLabelValues(string(reason)).Inc()
}

func (r *Recorder) BetSettled(status models.Status) {
	r.settled.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) ObservationFailed(reading models.Reading) {
	r.observationFailed.WithLabelValues(string(reading)).Inc()
}

func (r *Recorder) SweepCompleted(duration time.Duration) {
	r.sweeps.Inc()
	r.sweepDuration.Observe(duration.Seconds())
}
