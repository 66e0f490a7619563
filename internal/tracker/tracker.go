package tracker

import (
	"errors"
	"fmt"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
	"github.com/oshokin/posture-monitor/internal/evaluator"
)

// DefaultSmoothingFrames is the default run length of positive frames required to fire.
const DefaultSmoothingFrames = 5

// MissingPolicy selects how frames without a detected pose affect the counters.
type MissingPolicy string

// Missing frame policies.
const (
	// MissingFreeze leaves counters and flags untouched.
	MissingFreeze MissingPolicy = "freeze"
	// MissingReset treats the frame as negative for every kind.
	MissingReset MissingPolicy = "reset"
)

// ErrUnknownMissingPolicy is returned by ParseMissingPolicy for unsupported values.
var ErrUnknownMissingPolicy = errors.New("unknown missing frame policy")

// ParseMissingPolicy validates a policy name. An empty name means MissingFreeze.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingFreeze:
		return MissingFreeze, nil
	case MissingReset:
		return MissingReset, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMissingPolicy, s)
	}
}

// Options configures a Tracker.
type Options struct {
	// SmoothingFrames is the number of consecutive positive frames needed to fire.
	SmoothingFrames int
	// RearmAfter clears an active flag after this many consecutive negative frames.
	// Zero keeps issues one-shot for the whole session.
	RearmAfter int
	// MissingPolicy decides what frames without a pose do to the counters.
	MissingPolicy MissingPolicy
}

// DefaultOptions returns one-shot tracking with a five frame run and frozen counters on missing frames.
func DefaultOptions() Options {
	return Options{
		SmoothingFrames: DefaultSmoothingFrames,
		MissingPolicy:   MissingFreeze,
	}
}

// State is the hysteresis state of one issue kind.
type State struct {
	// Count is the number of consecutive positive frames.
	Count int
	// Active is set once the issue has fired.
	Active bool
	// Clean is the number of consecutive negative frames since the issue fired.
	// It only advances when re-arming is enabled.
	Clean int
}

// Tracker holds the hysteresis state of every issue kind for one session.
type Tracker struct {
	// opts are the normalized options.
	opts Options
	// states is keyed by issue kind.
	states map[posture.IssueKind]*State
}

// New creates a Tracker with every kind quiet.
func New(opts Options) *Tracker {
	if opts.SmoothingFrames < 1 {
		opts.SmoothingFrames = DefaultSmoothingFrames
	}

	if opts.RearmAfter < 0 {
		opts.RearmAfter = 0
	}

	if opts.MissingPolicy == "" {
		opts.MissingPolicy = MissingFreeze
	}

	t := &Tracker{
		opts:   opts,
		states: make(map[posture.IssueKind]*State, len(posture.AllIssueKinds)),
	}
	t.Reset()

	return t
}

// Options returns the normalized options the tracker runs with.
func (t *Tracker) Options() Options {
	return t.opts
}

// Reset returns every kind to its initial quiet state.
func (t *Tracker) Reset() {
	for _, k := range posture.AllIssueKinds {
		t.states[k] = &State{}
	}
}

// State returns a copy of the state of kind k.
func (t *Tracker) State(k posture.IssueKind) State {
	if s, ok := t.states[k]; ok {
		return *s
	}

	return State{}
}

// Observe feeds one frame's predicates and returns the issues that started on this frame,
// in posture.AllIssueKinds order. Kinds missing from p count as negative.
func (t *Tracker) Observe(p evaluator.Predicates, f posture.Features, elapsed float64, frame int) []posture.Event {
	var events []posture.Event

	for _, k := range posture.AllIssueKinds {
		if !p[k] {
			t.negative(t.states[k])
			continue
		}

		if t.positive(t.states[k]) {
			events = append(events, posture.Event{
				Kind:     k,
				Elapsed:  elapsed,
				Features: f,
				Frame:    frame,
			})
		}
	}

	return events
}

// Missing records a frame without a detected pose.
func (t *Tracker) Missing() {
	if t.opts.MissingPolicy != MissingReset {
		return
	}

	for _, k := range posture.AllIssueKinds {
		t.negative(t.states[k])
	}
}

// positive advances s on a positive frame and reports whether the issue fires.
func (t *Tracker) positive(s *State) bool {
	s.Count++
	s.Clean = 0

	if s.Count < t.opts.SmoothingFrames || s.Active {
		return false
	}

	s.Active = true

	return true
}

// negative resets the run of s and, when re-arming is enabled, eventually clears its flag.
func (t *Tracker) negative(s *State) {
	s.Count = 0

	if !s.Active || t.opts.RearmAfter == 0 {
		return
	}

	s.Clean++
	if s.Clean >= t.opts.RearmAfter {
		s.Active = false
		s.Clean = 0
	}
}
