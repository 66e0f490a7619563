// Package checker polls the health endpoint of a running posture monitor.
package checker
