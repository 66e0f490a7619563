// Package notifier forwards posture issue events to an external sink.
//
// # Debounce
//
// The Dispatcher keeps the wall-clock time each issue kind was last handed to
// the sink. An event is forwarded only when more than the debounce window
// (default 6 seconds) has passed since the previous one of the same kind; a
// kind that never fired is always eligible. The timestamp is updated whether
// or not delivery succeeds, so a failing sink is not hammered with retries.
//
// # Delivery
//
// WebhookSender POSTs a JSON Payload to an HTTP endpoint:
//
//	{"issue": "hips_away", "timestamp": 1717171717.25,
//	 "video_time_seconds": 12.4,
//	 "values": {"torso_angle": 24.1, "hip_dx_norm": 0.091,
//	            "left_elbow_angle": 140.2, "right_elbow_angle": 151.0}}
//
// Send only enqueues; a background worker performs the request with a strict
// timeout. A full queue or an exceeded rate limit drops the payload. Non-2xx
// responses and transport errors are logged and counted, never returned to
// the frame loop.
package notifier
