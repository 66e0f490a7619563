// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Stdout is left free for keypoint streams piped through the monitor, so all
// log output goes to stderr. Every component receives a context and extracts
// the logger from it, which keeps session fields attached to each line.
package logger
