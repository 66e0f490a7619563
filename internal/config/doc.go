// Package config defines monitor settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the detection thresholds, the smoothing and debounce
// windows, the notification sink, the event log location and the keypoint source.
package config
