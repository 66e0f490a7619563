package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// ErrMissingJoint is returned by Extract when a required joint is absent.
var ErrMissingJoint = errors.New("missing joint")

// down is the vertical reference axis for the torso angle.
//
//nolint:gochecknoglobals // Constant vector.
var down = r2.Vec{X: 0, Y: -1}

// AngleBetween returns the angle at vertex b formed by rays b→a and b→c, in degrees.
func AngleBetween(a, b, c posture.Point) float64 {
	vb := vec(b)

	return rayAngle(r2.Sub(vec(a), vb), r2.Sub(vec(c), vb))
}

// Midpoint returns the arithmetic mean of p and q.
func Midpoint(p, q posture.Point) posture.Point {
	m := r2.Scale(0.5, r2.Add(vec(p), vec(q)))

	return posture.Point{X: m.X, Y: m.Y}
}

// TorsoAngle returns the angle in degrees between the hip-to-shoulder
// vector and the vertical unit vector (0, -1).
func TorsoAngle(shoulderMid, hipMid posture.Point) float64 {
	return rayAngle(r2.Sub(vec(shoulderMid), vec(hipMid)), down)
}

// Extract computes the Features of one frame.
func Extract(kp posture.Keypoints) (posture.Features, error) {
	if missing := kp.Missing(posture.RequiredJoints); len(missing) > 0 {
		return posture.Features{}, fmt.Errorf("%w: %v", ErrMissingJoint, missing)
	}

	shoulderMid := Midpoint(kp[posture.LeftShoulder], kp[posture.RightShoulder])
	hipMid := Midpoint(kp[posture.LeftHip], kp[posture.RightHip])

	return posture.Features{
		TorsoAngle:      TorsoAngle(shoulderMid, hipMid),
		HipDXNorm:       math.Abs(hipMid.X - shoulderMid.X),
		LeftElbowAngle:  AngleBetween(kp[posture.LeftShoulder], kp[posture.LeftElbow], kp[posture.LeftWrist]),
		RightElbowAngle: AngleBetween(kp[posture.RightShoulder], kp[posture.RightElbow], kp[posture.RightWrist]),
	}, nil
}

// rayAngle returns the angle between u and v in degrees, or 0 when either is degenerate.
func rayAngle(u, v r2.Vec) float64 {
	mag := r2.Norm(u) * r2.Norm(v)
	if mag == 0 {
		return 0
	}

	cos := max(-1, min(1, r2.Dot(u, v)/mag))

	return math.Acos(cos) * 180 / math.Pi
}

func vec(p posture.Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}
