// Package monitor implements the posture-monitor service.
//
// A Session runs each frame through feature extraction, threshold evaluation
// and the hysteresis tracker, then records every issue onset in the event log
// and hands it to the notification dispatcher. Run wires a Session to the
// configured keypoint source, webhook sender, health and metrics endpoints.
package monitor
