package metricsvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
)

const namePrefix = "cohort_"

// Recorder exposes the assignment and scoring metrics on a Prometheus registry.
type Recorder struct {
	assignmentPasses   *prometheus.CounterVec
	assignmentsMade    prometheus.Counter
	assignmentDuration prometheus.Histogram
	recalculations     *prometheus.CounterVec
	recalcDuration     prometheus.Histogram
}

var (
	_ mentorship.Recorder = (*Recorder)(nil) // interface compliance check
	_ season.Recorder     = (*Recorder)(nil)
)

// NewRecorder creates the metrics and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		assignmentPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: namePrefix + "mentor_assignment_passes_total",
				Help: "Total number of mentor assignment passes, by outcome",
			},
			[]string{"status"},
		),
		assignmentsMade: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: namePrefix + "mentor_assignments_total",
				Help: "Total number of students given a mentor",
			},
		),
		assignmentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    namePrefix + "mentor_assignment_duration_seconds",
				Help:    "Duration of mentor assignment passes",
				Buckets: prometheus.DefBuckets,
			},
		),
		recalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: namePrefix + "legacy_score_recalculations_total",
				Help: "Total number of legacy score recalculations, by result",
			},
			[]string{"result"},
		),
		recalcDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    namePrefix + "legacy_score_recalculation_duration_seconds",
				Help:    "Duration of legacy score recalculations",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(r.assignmentPasses, r.assignmentsMade, r.assignmentDuration, r.recalculations, r.recalcDuration)
	return r
}

func (r *Recorder) AssignmentPass(status string, assigned int, took time.Duration) {
	r.assignmentPasses.WithLabelValues(status).Inc()
	r.assignmentsMade.Add(float64(assigned))
	r.assignmentDuration.Observe(took.Seconds())
}

func (r *Recorder) Recalculation(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.recalculations.WithLabelValues(result).Inc()
	r.recalcDuration.Observe(took.Seconds())
}
