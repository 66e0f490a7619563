package posture

// Features are the geometric measurements derived from one frame's keypoints.
type Features struct {
	// TorsoAngle is the angle in degrees between the hip-to-shoulder vector and vertical.
	TorsoAngle float64 `json:"torso_angle"`
	// HipDXNorm is the horizontal offset between the hip and shoulder midpoints.
	HipDXNorm float64 `json:"hip_dx_norm"`
	// LeftElbowAngle is the interior shoulder-elbow-wrist angle on the left arm.
	LeftElbowAngle float64 `json:"left_elbow_angle"`
	// RightElbowAngle is the interior shoulder-elbow-wrist angle on the right arm.
	RightElbowAngle float64 `json:"right_elbow_angle"`
}

// IssueKind names a detectable posture issue.
type IssueKind string

// Issue kinds.
const (
	HipsAway             IssueKind = "hips_away"
	LeftElbowOverextend  IssueKind = "left_elbow_overextend"
	RightElbowOverextend IssueKind = "right_elbow_overextend"
)

// AllIssueKinds is the fixed evaluation order of issue kinds.
//
//nolint:gochecknoglobals // Fixed enumeration.
var AllIssueKinds = []IssueKind{HipsAway, LeftElbowOverextend, RightElbowOverextend}

// Valid reports whether k is one of AllIssueKinds.
func (k IssueKind) Valid() bool {
	for _, known := range AllIssueKinds {
		if k == known {
			return true
		}
	}

	return false
}

// String implements fmt.Stringer.
func (k IssueKind) String() string {
	return string(k)
}

// Event records the onset of a sustained issue.
// It is passed by value and never modified after creation.
type Event struct {
	// Kind is the issue that started.
	Kind IssueKind
	// Elapsed is the session time in seconds at which the issue fired.
	Elapsed float64
	// Features are the measurements of the frame that fired the issue.
	Features Features
	// Frame is the index of the frame that fired the issue.
	Frame int
}
