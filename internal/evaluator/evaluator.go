// Package evaluator turns per-frame Features into per-issue predicates.
package evaluator

import "github.com/oshokin/posture-monitor/internal/domain/posture"

// Default thresholds.
const (
	DefaultElbowExtendThreshold = 165.0
	DefaultTorsoAngleThreshold  = 20.0
	DefaultHipDXThreshold       = 0.08
)

// Thresholds are the limits above which a feature counts as an issue.
type Thresholds struct {
	// ElbowExtend is the elbow angle in degrees above which the arm is overextended.
	ElbowExtend float64
	// TorsoAngle is the torso lean in degrees above which the hips are away.
	TorsoAngle float64
	// HipDX is the normalized hip offset above which the hips are away.
	HipDX float64
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ElbowExtend: DefaultElbowExtendThreshold,
		TorsoAngle:  DefaultTorsoAngleThreshold,
		HipDX:       DefaultHipDXThreshold,
	}
}

// Predicates holds one boolean per issue kind for a single frame.
type Predicates map[posture.IssueKind]bool

// Evaluate maps features to issue predicates. Each comparison is strict.
// Either the torso angle or the hip offset alone is enough for hips_away.
func Evaluate(f posture.Features, t Thresholds) Predicates {
	return Predicates{
		posture.HipsAway:             f.TorsoAngle > t.TorsoAngle || f.HipDXNorm > t.HipDX,
		posture.LeftElbowOverextend:  f.LeftElbowAngle > t.ElbowExtend,
		posture.RightElbowOverextend: f.RightElbowAngle > t.ElbowExtend,
	}
}

// None returns predicates with every issue false.
func None() Predicates {
	p := make(Predicates, len(posture.AllIssueKinds))
	for _, k := range posture.AllIssueKinds {
		p[k] = false
	}

	return p
}
