// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC health client wrapper with timeouts, a
// process scan that finds other running monitors, and utilities to detect
// the current system actor (hostname/username) for session logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
