package monitor

import (
	"context"
	"time"

	"github.com/oshokin/posture-monitor/internal/clock"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
	"github.com/oshokin/posture-monitor/internal/evaluator"
	"github.com/oshokin/posture-monitor/internal/geometry"
	"github.com/oshokin/posture-monitor/internal/logger"
	"github.com/oshokin/posture-monitor/internal/notifier"
	"github.com/oshokin/posture-monitor/internal/repository/eventlog"
	"github.com/oshokin/posture-monitor/internal/tracker"
)

// SessionOptions configures the detection pipeline of a Session.
type SessionOptions struct {
	Thresholds evaluator.Thresholds
	Tracker    tracker.Options
	// Clock measures elapsed time for frames without a timestamp. Defaults to the real clock.
	Clock clock.Clock
}

// Stats summarizes a session so far.
type Stats struct {
	Frames   int
	Missing  int
	Events   int
	Notified int
	// Dropped counts events the sender refused, such as on a full queue.
	Dropped int
}

// Session owns the tracker and dispatcher state of one run over one stream.
// It is driven by a single goroutine.
type Session struct {
	opts       SessionOptions
	tracker    *tracker.Tracker
	dispatcher *notifier.Dispatcher
	events     eventlog.Repository
	start      time.Time
	stats      Stats
}

// NewSession creates a Session. The dispatcher and the event log may be nil.
func NewSession(opts SessionOptions, dispatcher *notifier.Dispatcher, events eventlog.Repository) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	return &Session{
		opts:       opts,
		tracker:    tracker.New(opts.Tracker),
		dispatcher: dispatcher,
		events:     events,
		start:      opts.Clock.Now(),
	}
}

// ProcessFrame runs one frame through the pipeline and returns the issues that started on it.
// Frames without a pose, or missing a required joint, only advance the missing-frame policy.
func (s *Session) ProcessFrame(ctx context.Context, frame posture.Frame) []posture.Event {
	s.stats.Frames++

	if !frame.Detected() {
		framesTotal.WithLabelValues(frameMissing).Inc()
		s.missing()

		return nil
	}

	features, err := geometry.Extract(frame.Keypoints)
	if err != nil {
		framesTotal.WithLabelValues(frameIncomplete).Inc()
		logger.DebugKV(ctx, "Frame treated as no detection", "frame", frame.Index, "error", err)
		s.missing()

		return nil
	}

	framesTotal.WithLabelValues(frameDetected).Inc()

	predicates := evaluator.Evaluate(features, s.opts.Thresholds)
	onsets := s.tracker.Observe(predicates, features, s.elapsed(frame), frame.Index)

	for _, ev := range onsets {
		s.record(ctx, ev)
	}

	return onsets
}

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats {
	return s.stats
}

// Tracker exposes the hysteresis state for status reporting.
func (s *Session) Tracker() *tracker.Tracker {
	return s.tracker
}

// Reset clears tracker state and restarts the elapsed-time origin.
// Debounce history is kept so a restart cannot flood the sink.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.start = s.opts.Clock.Now()
	s.stats = Stats{}
}

func (s *Session) missing() {
	s.stats.Missing++
	s.tracker.Missing()
}

// elapsed prefers the producer's timestamp and falls back to time since the session started.
func (s *Session) elapsed(frame posture.Frame) float64 {
	if frame.Time != nil {
		return *frame.Time
	}

	return s.opts.Clock.Since(s.start).Seconds()
}

// record logs the event, appends it to the event log and hands it to the dispatcher.
func (s *Session) record(ctx context.Context, ev posture.Event) {
	s.stats.Events++
	issuesTotal.WithLabelValues(ev.Kind.String()).Inc()

	logger.InfoKV(ctx, "Posture issue detected",
		"issue", ev.Kind,
		"elapsed", ev.Elapsed,
		"frame", ev.Frame,
		"torso_angle", ev.Features.TorsoAngle,
		"hip_dx_norm", ev.Features.HipDXNorm,
		"left_elbow_angle", ev.Features.LeftElbowAngle,
		"right_elbow_angle", ev.Features.RightElbowAngle,
	)

	if s.events != nil {
		if err := s.events.Append(ctx, ev); err != nil {
			eventLogErrorsTotal.Inc()
			logger.ErrorKV(ctx, "Unable to write event log row", "issue", ev.Kind, "error", err)
		}
	}

	if s.dispatcher == nil {
		return
	}

	switch s.dispatcher.Dispatch(ctx, ev) {
	case notifier.OutcomeSent:
		s.stats.Notified++
	case notifier.OutcomeDropped:
		s.stats.Dropped++
	case notifier.OutcomeDisabled, notifier.OutcomeSuppressed:
	}
}
