// Package testutil builds synthetic poses for tests.
package testutil

import (
	"math"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

const (
	torsoLength   = 0.3
	upperArmLen   = 0.15
	forearmLen    = 0.15
	shoulderHalfW = 0.1
	hipHalfW      = 0.08
)

// Pose describes the angles a synthetic skeleton should produce, in degrees.
type Pose struct {
	// Torso is the lean of the hip-to-shoulder vector away from vertical.
	Torso float64
	// LeftElbow and RightElbow are the interior shoulder-elbow-wrist angles.
	LeftElbow  float64
	RightElbow float64
}

// Upright is a neutral pose that triggers no issue with default thresholds.
//
//nolint:gochecknoglobals // Read-only fixture.
var Upright = Pose{Torso: 0, LeftElbow: 90, RightElbow: 90}

// Keypoints builds a skeleton whose extracted features match p.
// The hips are centered at (0.5, 0.7) and the upper arms hang straight down.
func (p Pose) Keypoints() posture.Keypoints {
	hipMid := posture.Point{X: 0.5, Y: 0.7}
	lean := rad(p.Torso)
	shoulderMid := posture.Point{
		X: hipMid.X + torsoLength*math.Sin(lean),
		Y: hipMid.Y - torsoLength*math.Cos(lean),
	}

	leftShoulder := posture.Point{X: shoulderMid.X - shoulderHalfW, Y: shoulderMid.Y}
	rightShoulder := posture.Point{X: shoulderMid.X + shoulderHalfW, Y: shoulderMid.Y}
	leftElbow := posture.Point{X: leftShoulder.X, Y: leftShoulder.Y + upperArmLen}
	rightElbow := posture.Point{X: rightShoulder.X, Y: rightShoulder.Y + upperArmLen}

	return posture.Keypoints{
		posture.LeftShoulder:  leftShoulder,
		posture.RightShoulder: rightShoulder,
		posture.LeftElbow:     leftElbow,
		posture.RightElbow:    rightElbow,
		posture.LeftWrist:     wrist(leftElbow, p.LeftElbow, -1),
		posture.RightWrist:    wrist(rightElbow, p.RightElbow, 1),
		posture.LeftHip:       {X: hipMid.X - hipHalfW, Y: hipMid.Y},
		posture.RightHip:      {X: hipMid.X + hipHalfW, Y: hipMid.Y},
	}
}

// Frame wraps the pose's keypoints in a frame with the given index.
func (p Pose) Frame(index int) posture.Frame {
	return posture.Frame{Index: index, Keypoints: p.Keypoints()}
}

// wrist places the wrist so the angle between the upward upper-arm ray and the forearm is angle.
// side mirrors the forearm outwards (-1 left, 1 right).
func wrist(elbow posture.Point, angle, side float64) posture.Point {
	a := rad(angle)

	return posture.Point{
		X: elbow.X + side*forearmLen*math.Sin(a),
		Y: elbow.Y - forearmLen*math.Cos(a),
	}
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
