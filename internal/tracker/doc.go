// Package tracker converts noisy per-frame issue predicates into onset events.
//
// Each issue kind owns a counter of consecutive positive frames and an active
// flag. An issue fires once the counter reaches SmoothingFrames while the
// flag is clear; firing sets the flag. A negative frame resets the counter
// but leaves the flag set, so by default each kind fires at most once per
// session. Setting RearmAfter clears the flag after that many consecutive
// negative frames, allowing a later recurrence to fire again.
//
// Frames without a detected pose are handled by MissingPolicy: MissingFreeze
// leaves every counter untouched, MissingReset treats the frame as negative.
//
// Kinds are tracked independently. A Tracker is not safe for concurrent use;
// it is owned by the single goroutine driving the session.
package tracker
