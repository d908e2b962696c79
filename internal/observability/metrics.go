package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	progressPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coursetrack",
		Subsystem: "persistence",
		Name:      "last_progress_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent progress record written to the store.",
	})
	progressEventGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coursetrack",
		Subsystem: "persistence",
		Name:      "last_progress_event_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent progress event appended to the event log.",
	})
	dayTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coursetrack",
		Subsystem: "progress",
		Name:      "day_transitions_total",
		Help:      "Number of completion state writes, labelled by resulting state.",
	}, []string{"state"})
	seededUsers = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coursetrack",
		Subsystem: "progress",
		Name:      "initial_progress_seeded_total",
		Help:      "Number of users whose baseline progress was seeded.",
	})
)

func init() {
	prometheus.MustRegister(progressPersistGauge, progressEventGauge, dayTransitions, seededUsers)
}

// RecordProgressPersisted updates the persistence watermark gauge.
func RecordProgressPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	progressPersistGauge.Set(float64(ts.Unix()))
}

// RecordProgressEvent updates the event log watermark gauge.
func RecordProgressEvent(ts time.Time) {
	if ts.IsZero() {
		return
	}
	progressEventGauge.Set(float64(ts.Unix()))
}

// RecordDayTransition counts a completion state write.
func RecordDayTransition(completed bool) {
	state := "incomplete"
	if completed {
		state = "complete"
	}
	dayTransitions.WithLabelValues(state).Inc()
}

// RecordSeeded counts a seeded user.
func RecordSeeded() {
	seededUsers.Inc()
}
