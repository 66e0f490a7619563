// Package posture contains the core domain types for posture issue detection.
//
// It defines the body joints the detector needs (Joint, Point, Keypoints),
// the per-frame input (Frame), the geometric Features derived from it, the
// fixed set of IssueKind values and the immutable Event emitted when an issue
// starts.
package posture
