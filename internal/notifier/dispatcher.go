package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/posture-monitor/internal/clock"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// DefaultDebounce is the minimum spacing between two notifications of the same kind.
const DefaultDebounce = 6 * time.Second

// Outcome is what Dispatch did with an event.
type Outcome string

// Dispatch outcomes.
const (
	// OutcomeDisabled means no sink is configured.
	OutcomeDisabled Outcome = "disabled"
	// OutcomeSuppressed means the kind fired within the debounce window.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeSent means the sender accepted the payload for delivery.
	OutcomeSent Outcome = "sent"
	// OutcomeDropped means the sender refused the payload, for example on a full queue
	// or an exceeded rate limit. The debounce window still starts.
	OutcomeDropped Outcome = "dropped"
)

// DispatcherOptions configures the Dispatcher.
type DispatcherOptions struct {
	// Debounce is the per-kind suppression window.
	Debounce time.Duration
	// Clock supplies wall-clock time. Defaults to the real clock.
	Clock clock.Clock
}

// DefaultDispatcherOptions returns a six second debounce on the real clock.
func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		Debounce: DefaultDebounce,
		Clock:    clock.Real{},
	}
}

// Dispatcher debounces issue events per kind and forwards them to a Sender.
type Dispatcher struct {
	logger *zap.SugaredLogger
	opts   DispatcherOptions
	sender Sender

	// mu guards lastFired; the session loop writes it while status readers may inspect it.
	mu        sync.Mutex
	lastFired map[posture.IssueKind]time.Time
}

// NewDispatcher creates a Dispatcher. A nil sender disables dispatch entirely.
func NewDispatcher(logger *zap.SugaredLogger, opts DispatcherOptions, sender Sender) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	if opts.Debounce < 0 {
		opts.Debounce = 0
	}

	return &Dispatcher{
		logger:    logger.Named("dispatcher"),
		opts:      opts,
		sender:    sender,
		lastFired: make(map[posture.IssueKind]time.Time, len(posture.AllIssueKinds)),
	}
}

// Enabled reports whether a sink is configured.
func (d *Dispatcher) Enabled() bool {
	return d.sender != nil
}

// Dispatch forwards ev unless its kind was forwarded within the debounce window.
// Sender errors are logged and reported as OutcomeDropped, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev posture.Event) Outcome {
	if d.sender == nil {
		return OutcomeDisabled
	}

	now, ok := d.tryMarkFired(ev.Kind)
	if !ok {
		dispatchTotal.WithLabelValues(ev.Kind.String(), string(OutcomeSuppressed)).Inc()
		d.logger.Debugw("Notification suppressed by debounce",
			"issue", ev.Kind,
			"debounce", d.opts.Debounce.String(),
		)

		return OutcomeSuppressed
	}

	outcome := OutcomeSent

	if err := d.sender.Send(ctx, NewPayload(ev, now)); err != nil {
		outcome = OutcomeDropped

		d.logger.Warnw("Notification not delivered",
			"issue", ev.Kind,
			"sender", d.sender.Name(),
			"error", err,
		)
	}

	dispatchTotal.WithLabelValues(ev.Kind.String(), string(outcome)).Inc()

	return outcome
}

// LastFired returns when kind k was last forwarded.
func (d *Dispatcher) LastFired(k posture.IssueKind) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.lastFired[k]

	return t, ok
}

// tryMarkFired checks the debounce window for k and, if it has elapsed, records now.
// The check and the update happen under one lock.
func (d *Dispatcher) tryMarkFired(k posture.IssueKind) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.opts.Clock.Now()
	if last, fired := d.lastFired[k]; fired && now.Sub(last) <= d.opts.Debounce {
		return now, false
	}

	d.lastFired[k] = now

	return now, true
}
