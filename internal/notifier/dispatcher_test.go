package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/posture-monitor/internal/clock"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

var errSinkDown = errors.New("sink down")

// recordingSender is an in-memory Sender that records every payload.
type recordingSender struct {
	mu       sync.Mutex
	payloads []Payload
	err      error
}

func (r *recordingSender) Name() string          { return "recording" }
func (r *recordingSender) Start(context.Context) {}
func (r *recordingSender) Close()                {}
func (r *recordingSender) Send(_ context.Context, p Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payloads = append(r.payloads, p)

	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.payloads)
}

var testStart = time.Unix(1_717_000_000, 0)

func newTestDispatcher(sender Sender) (*Dispatcher, *clock.Mock) {
	clk := clock.NewMock(testStart)
	d := NewDispatcher(zap.NewNop().Sugar(), DispatcherOptions{Debounce: DefaultDebounce, Clock: clk}, sender)

	return d, clk
}

func event(k posture.IssueKind, elapsed float64) posture.Event {
	return posture.Event{
		Kind:     k,
		Elapsed:  elapsed,
		Features: posture.Features{TorsoAngle: 25, HipDXNorm: 0.12, LeftElbowAngle: 100, RightElbowAngle: 110},
	}
}

// TestDispatcher_NoSender verifies nothing happens when no sink is configured.
func TestDispatcher_NoSender(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(nil)

	require.False(t, d.Enabled())
	require.Equal(t, OutcomeDisabled, d.Dispatch(context.Background(), event(posture.HipsAway, 1)))

	_, fired := d.LastFired(posture.HipsAway)
	require.False(t, fired)
}

// TestDispatcher_FirstEventAlwaysSent verifies a kind that never fired is eligible immediately.
func TestDispatcher_FirstEventAlwaysSent(t *testing.T) {
	t.Parallel()

	sender := new(recordingSender)
	d, _ := newTestDispatcher(sender)

	require.Equal(t, OutcomeSent, d.Dispatch(context.Background(), event(posture.HipsAway, 3.5)))
	require.Equal(t, 1, sender.count())

	p := sender.payloads[0]
	require.Equal(t, "hips_away", p.Issue)
	require.InDelta(t, float64(testStart.Unix()), p.Timestamp, 1e-6)
	require.InDelta(t, 3.5, p.VideoTimeSeconds, 1e-9)
	require.InDelta(t, 25, p.Values.TorsoAngle, 1e-9)

	last, fired := d.LastFired(posture.HipsAway)
	require.True(t, fired)
	require.Equal(t, testStart, last)
}

// TestDispatcher_Debounce verifies repeats within the window are suppressed and later ones are sent.
func TestDispatcher_Debounce(t *testing.T) {
	t.Parallel()

	sender := new(recordingSender)
	d, clk := newTestDispatcher(sender)
	ctx := context.Background()

	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.HipsAway, 1)))

	clk.Advance(3 * time.Second)
	require.Equal(t, OutcomeSuppressed, d.Dispatch(ctx, event(posture.HipsAway, 4)))
	require.Equal(t, 1, sender.count())

	// Exactly at the window is still suppressed; the comparison is strict.
	clk.Advance(3 * time.Second)
	require.Equal(t, OutcomeSuppressed, d.Dispatch(ctx, event(posture.HipsAway, 7)))

	clk.Advance(time.Millisecond)
	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.HipsAway, 7)))
	require.Equal(t, 2, sender.count())
}

// TestDispatcher_SuppressedDoesNotExtendWindow verifies suppressed events leave last-fired untouched.
func TestDispatcher_SuppressedDoesNotExtendWindow(t *testing.T) {
	t.Parallel()

	sender := new(recordingSender)
	d, clk := newTestDispatcher(sender)
	ctx := context.Background()

	d.Dispatch(ctx, event(posture.LeftElbowOverextend, 0))
	clk.Advance(5 * time.Second)
	d.Dispatch(ctx, event(posture.LeftElbowOverextend, 5))

	last, _ := d.LastFired(posture.LeftElbowOverextend)
	require.Equal(t, testStart, last)

	clk.Advance(2 * time.Second)
	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.LeftElbowOverextend, 7)))
}

// TestDispatcher_KindsIndependent verifies each kind has its own window.
func TestDispatcher_KindsIndependent(t *testing.T) {
	t.Parallel()

	sender := new(recordingSender)
	d, clk := newTestDispatcher(sender)
	ctx := context.Background()

	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.HipsAway, 0)))
	clk.Advance(time.Second)
	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.LeftElbowOverextend, 1)))
	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.RightElbowOverextend, 1)))
	require.Equal(t, OutcomeSuppressed, d.Dispatch(ctx, event(posture.HipsAway, 1)))
	require.Equal(t, 3, sender.count())
}

// TestDispatcher_SenderErrorStillMarksFired verifies a failed send is logged and still starts the window.
func TestDispatcher_SenderErrorStillMarksFired(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sender := &recordingSender{err: errSinkDown}
	clk := clock.NewMock(testStart)
	d := NewDispatcher(zap.New(core).Sugar(), DispatcherOptions{Debounce: DefaultDebounce, Clock: clk}, sender)

	require.Equal(t, OutcomeDropped, d.Dispatch(context.Background(), event(posture.HipsAway, 0)))
	require.Equal(t, 1, logs.FilterMessage("Notification not delivered").Len())

	clk.Advance(time.Second)
	require.Equal(t, OutcomeSuppressed, d.Dispatch(context.Background(), event(posture.HipsAway, 1)))
	require.Equal(t, 1, sender.count())
}

// TestDispatcher_QueueFullIsDropped verifies a refused payload is reported as dropped and
// still starts the debounce window.
func TestDispatcher_QueueFullIsDropped(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: ErrQueueFull}
	d, clk := newTestDispatcher(sender)
	ctx := context.Background()

	require.Equal(t, OutcomeDropped, d.Dispatch(ctx, event(posture.RightElbowOverextend, 0)))

	last, fired := d.LastFired(posture.RightElbowOverextend)
	require.True(t, fired)
	require.Equal(t, testStart, last)

	clk.Advance(time.Second)
	require.Equal(t, OutcomeSuppressed, d.Dispatch(ctx, event(posture.RightElbowOverextend, 1)))

	sender.err = nil

	clk.Advance(DefaultDebounce)
	require.Equal(t, OutcomeSent, d.Dispatch(ctx, event(posture.RightElbowOverextend, 7)))
}

// TestNewDispatcher_Defaults verifies a missing clock falls back to the real one.
func TestNewDispatcher_Defaults(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(zap.NewNop().Sugar(), DispatcherOptions{Debounce: -time.Second}, new(recordingSender))

	require.IsType(t, clock.Real{}, d.opts.Clock)
	require.Zero(t, d.opts.Debounce)
}
