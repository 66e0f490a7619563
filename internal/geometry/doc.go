// Package geometry extracts posture Features from a frame's keypoints.
//
// All functions are pure. Angles are computed from the normalized dot product
// of two rays, with the cosine clamped to [-1, 1] so floating-point overshoot
// never reaches math.Acos. A ray of zero length yields an angle of 0.
package geometry
