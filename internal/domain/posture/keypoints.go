package posture

import "sort"

// Joint is a named anatomical landmark.
type Joint string

// Joints used by the feature extractor.
const (
	LeftShoulder  Joint = "left_shoulder"
	RightShoulder Joint = "right_shoulder"
	LeftElbow     Joint = "left_elbow"
	RightElbow    Joint = "right_elbow"
	LeftWrist     Joint = "left_wrist"
	RightWrist    Joint = "right_wrist"
	LeftHip       Joint = "left_hip"
	RightHip      Joint = "right_hip"
)

// RequiredJoints lists every joint needed to compute Features.
//
//nolint:gochecknoglobals // Fixed lookup table.
var RequiredJoints = []Joint{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
}

// landmarkIndex maps joints to their index in a 33-point MediaPipe pose landmark list.
//
//nolint:gochecknoglobals // Fixed lookup table.
var landmarkIndex = map[Joint]int{
	LeftShoulder:  11,
	RightShoulder: 12,
	LeftElbow:     13,
	RightElbow:    14,
	LeftWrist:     15,
	RightWrist:    16,
	LeftHip:       23,
	RightHip:      24,
}

// LandmarkIndex returns the MediaPipe landmark index of the joint.
func (j Joint) LandmarkIndex() (int, bool) {
	i, ok := landmarkIndex[j]

	return i, ok
}

// Point is a 2D position normalized to the frame, x to the right and y downwards.
// Points outside [0,1] are allowed for joints that left the frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoints maps joints to their position in a single frame.
type Keypoints map[Joint]Point

// Missing returns the required joints absent from kp, sorted by name.
func (kp Keypoints) Missing(required []Joint) []Joint {
	var missing []Joint

	for _, j := range required {
		if _, ok := kp[j]; !ok {
			missing = append(missing, j)
		}
	}

	sort.Slice(missing, func(a, b int) bool { return missing[a] < missing[b] })

	return missing
}

// FromLandmarks builds Keypoints from an indexed landmark list.
// Joints whose index is out of range are left out.
func FromLandmarks(landmarks []Point) Keypoints {
	kp := make(Keypoints, len(landmarkIndex))

	for joint, i := range landmarkIndex {
		if i < len(landmarks) {
			kp[joint] = landmarks[i]
		}
	}

	return kp
}

// Frame is one unit of input from the pose collaborator.
type Frame struct {
	// Index is the zero-based position of the frame in the stream.
	Index int
	// Time is the stream time in seconds, when the producer supplies one.
	Time *float64
	// Keypoints is nil when no person was detected.
	Keypoints Keypoints
}

// Detected reports whether the frame carries a pose.
func (f Frame) Detected() bool {
	return f.Keypoints != nil
}
