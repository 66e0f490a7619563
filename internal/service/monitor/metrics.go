package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame results.
const (
	frameDetected   = "detected"
	frameMissing    = "missing"
	frameIncomplete = "incomplete"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posture_frames_total",
			Help: "Frames processed by result.",
		},
		[]string{"result"},
	)
	issuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posture_issues_total",
			Help: "Issue onsets by issue kind.",
		},
		[]string{"issue"},
	)
	eventLogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posture_event_log_errors_total",
			Help: "Event log rows that could not be written.",
		},
	)
)
