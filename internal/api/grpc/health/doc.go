// Package health implements the gRPC transport reporting monitor liveness.
//
// It wraps the standard grpc.health.v1 service so orchestrators and the
// posture-monitor health command can tell whether a session is processing frames.
package health
