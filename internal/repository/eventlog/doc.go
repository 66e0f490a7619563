// Package eventlog implements persistence for posture issue events.
//
// The FileLog appends one CSV row per event and exposes a Repository
// interface that the monitor service depends on.
package eventlog
