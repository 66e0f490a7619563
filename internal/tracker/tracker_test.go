package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
	"github.com/oshokin/posture-monitor/internal/evaluator"
)

// only returns predicates where kind k is v and every other kind is false.
func only(k posture.IssueKind, v bool) evaluator.Predicates {
	p := evaluator.None()
	p[k] = v

	return p
}

// feed observes the sequence for kind k and returns all emitted events.
func feed(tr *Tracker, k posture.IssueKind, seq []bool) []posture.Event {
	var events []posture.Event

	for i, v := range seq {
		events = append(events, tr.Observe(only(k, v), posture.Features{}, float64(i), i)...)
	}

	return events
}

func repeat(v bool, n int) []bool {
	seq := make([]bool, n)
	for i := range seq {
		seq[i] = v
	}

	return seq
}

// TestTracker_ShortRunDoesNotFire verifies n-1 positives followed by a negative fire nothing and reset the count.
func TestTracker_ShortRunDoesNotFire(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())
	seq := append(repeat(true, DefaultSmoothingFrames-1), false)

	require.Empty(t, feed(tr, posture.HipsAway, seq))
	require.Equal(t, State{}, tr.State(posture.HipsAway))
}

// TestTracker_FiresOnNthPositive verifies exactly one event at the n-th consecutive positive frame.
func TestTracker_FiresOnNthPositive(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())

	events := feed(tr, posture.LeftElbowOverextend, repeat(true, DefaultSmoothingFrames+3))
	require.Len(t, events, 1)
	require.Equal(t, posture.LeftElbowOverextend, events[0].Kind)
	require.Equal(t, DefaultSmoothingFrames-1, events[0].Frame)
	require.InDelta(t, float64(DefaultSmoothingFrames-1), events[0].Elapsed, 1e-9)

	st := tr.State(posture.LeftElbowOverextend)
	require.True(t, st.Active)
	require.Equal(t, DefaultSmoothingFrames+3, st.Count)
}

// TestTracker_OneShotPerSession verifies a fired kind never fires again, whatever follows.
func TestTracker_OneShotPerSession(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())

	seq := repeat(true, 5)
	seq = append(seq, repeat(false, 50)...)
	seq = append(seq, repeat(true, 20)...)
	seq = append(seq, false, true, true, true, true, true, true)

	events := feed(tr, posture.HipsAway, seq)
	require.Len(t, events, 1)
	require.True(t, tr.State(posture.HipsAway).Active)
}

// TestTracker_KindsIndependent verifies triggering one kind leaves the others untouched.
func TestTracker_KindsIndependent(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())

	events := feed(tr, posture.HipsAway, repeat(true, 6))
	require.Len(t, events, 1)
	require.Equal(t, posture.HipsAway, events[0].Kind)
	require.Equal(t, State{}, tr.State(posture.LeftElbowOverextend))
	require.Equal(t, State{}, tr.State(posture.RightElbowOverextend))

	// A partially armed elbow keeps its own run while hips keep firing nothing new.
	both := evaluator.Predicates{posture.HipsAway: true, posture.LeftElbowOverextend: true}
	for i := range 3 {
		require.Empty(t, tr.Observe(both, posture.Features{}, 0, 10+i))
	}

	require.Equal(t, State{Count: 3}, tr.State(posture.LeftElbowOverextend))
	require.Equal(t, State{Count: 9, Active: true}, tr.State(posture.HipsAway))
}

// TestTracker_SimultaneousKinds checks kinds firing on the same frame come out in fixed order.
func TestTracker_SimultaneousKinds(t *testing.T) {
	t.Parallel()

	tr := New(Options{SmoothingFrames: 2})
	all := evaluator.Predicates{
		posture.HipsAway:             true,
		posture.LeftElbowOverextend:  true,
		posture.RightElbowOverextend: true,
	}

	require.Empty(t, tr.Observe(all, posture.Features{}, 0, 0))

	events := tr.Observe(all, posture.Features{TorsoAngle: 30}, 0.5, 1)
	require.Len(t, events, 3)

	for i, k := range posture.AllIssueKinds {
		require.Equal(t, k, events[i].Kind)
		require.InDelta(t, 30, events[i].Features.TorsoAngle, 1e-9)
	}
}

// TestTracker_MissingFreeze verifies frames without a pose neither reset nor advance counters.
func TestTracker_MissingFreeze(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())

	feed(tr, posture.HipsAway, repeat(true, 4))
	tr.Missing()
	tr.Missing()
	require.Equal(t, 4, tr.State(posture.HipsAway).Count)

	events := feed(tr, posture.HipsAway, repeat(true, 1))
	require.Len(t, events, 1)
}

// TestTracker_MissingReset verifies the reset policy treats missing frames as negatives.
func TestTracker_MissingReset(t *testing.T) {
	t.Parallel()

	tr := New(Options{SmoothingFrames: 5, MissingPolicy: MissingReset})

	feed(tr, posture.HipsAway, repeat(true, 4))
	tr.Missing()
	require.Equal(t, 0, tr.State(posture.HipsAway).Count)
	require.Empty(t, feed(tr, posture.HipsAway, repeat(true, 4)))
}

// TestTracker_Rearm verifies an issue can fire again after enough clean frames.
func TestTracker_Rearm(t *testing.T) {
	t.Parallel()

	tr := New(Options{SmoothingFrames: 3, RearmAfter: 4})

	seq := repeat(true, 3)                // fires
	seq = append(seq, repeat(false, 3)...) // not clean long enough
	seq = append(seq, repeat(true, 3)...)  // still active, no fire
	seq = append(seq, repeat(false, 4)...) // re-armed
	seq = append(seq, repeat(true, 3)...)  // fires again

	events := feed(tr, posture.RightElbowOverextend, seq)
	require.Len(t, events, 2)
	require.Equal(t, 2, events[0].Frame)
	require.Equal(t, len(seq)-1, events[1].Frame)
}

// TestTracker_Reset verifies Reset restores the initial state for reuse.
func TestTracker_Reset(t *testing.T) {
	t.Parallel()

	tr := New(DefaultOptions())
	require.Len(t, feed(tr, posture.HipsAway, repeat(true, 5)), 1)

	tr.Reset()

	for _, k := range posture.AllIssueKinds {
		require.Equal(t, State{}, tr.State(k))
	}

	require.Len(t, feed(tr, posture.HipsAway, repeat(true, 5)), 1)
}

// TestNew_NormalizesOptions verifies invalid options fall back to defaults.
func TestNew_NormalizesOptions(t *testing.T) {
	t.Parallel()

	opts := New(Options{SmoothingFrames: 0, RearmAfter: -3}).Options()
	require.Equal(t, DefaultSmoothingFrames, opts.SmoothingFrames)
	require.Zero(t, opts.RearmAfter)
	require.Equal(t, MissingFreeze, opts.MissingPolicy)
}

// TestParseMissingPolicy checks accepted and rejected policy names.
func TestParseMissingPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseMissingPolicy("")
	require.NoError(t, err)
	require.Equal(t, MissingFreeze, p)

	p, err = ParseMissingPolicy("reset")
	require.NoError(t, err)
	require.Equal(t, MissingReset, p)

	_, err = ParseMissingPolicy("drop")
	require.ErrorIs(t, err, ErrUnknownMissingPolicy)
}
