package notifier

import (
	"context"
	"time"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// Payload is the JSON body delivered to the notification sink.
type Payload struct {
	// Issue is the issue kind name.
	Issue string `json:"issue"`
	// Timestamp is the wall-clock dispatch time in Unix seconds.
	Timestamp float64 `json:"timestamp"`
	// VideoTimeSeconds is the session time at which the issue fired.
	VideoTimeSeconds float64 `json:"video_time_seconds"`
	// Values are the features of the frame that fired the issue.
	Values posture.Features `json:"values"`
}

// NewPayload builds the payload for ev dispatched at now.
func NewPayload(ev posture.Event, now time.Time) Payload {
	return Payload{
		Issue:            ev.Kind.String(),
		Timestamp:        float64(now.UnixNano()) / float64(time.Second),
		VideoTimeSeconds: ev.Elapsed,
		Values:           ev.Features,
	}
}

// Sender is an external notification channel.
// Implementations handle their own asynchronous delivery.
type Sender interface {
	// Name returns the sender's identifier.
	Name() string
	// Send hands a payload over for delivery. It must not block on the network.
	Send(ctx context.Context, p Payload) error
	// Start begins background workers. Non-blocking.
	Start(ctx context.Context)
	// Close waits for queued payloads to be processed after the Start context is cancelled.
	Close()
}
