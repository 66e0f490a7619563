package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
	"github.com/oshokin/posture-monitor/internal/logger"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 1 << 20

// JSONLines reads one frame per line.
// A background goroutine scans the reader so that Next can return as soon as
// its context is done, even while the producer is idle.
type JSONLines struct {
	scanner *bufio.Scanner
	closer  io.Closer

	startOnce sync.Once
	closeOnce sync.Once
	lines     chan scannedLine
	done      chan struct{}

	// index is the position of the next decoded frame.
	index int
	// line is the number of the last line read, for log messages.
	line int
	// err is the terminal scan result, returned by every Next after it.
	err error
}

// scannedLine is one line or the terminal error of the scan.
type scannedLine struct {
	data []byte
	err  error
}

// NewJSONLines reads frames from r. The caller keeps ownership of r.
func NewJSONLines(r io.Reader) *JSONLines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &JSONLines{
		scanner: scanner,
		lines:   make(chan scannedLine),
		done:    make(chan struct{}),
	}
}

// OpenJSONLines opens path for reading; "-" selects stdin.
func OpenJSONLines(ctx context.Context, path string) (*JSONLines, error) {
	if path == "" || path == config.StdinPath {
		logger.Info(ctx, "Reading frames from stdin")

		return NewJSONLines(os.Stdin), nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open frames file: %w", err)
	}

	logger.InfoKV(ctx, "Reading frames from file", "path", path)

	src := NewJSONLines(f)
	src.closer = f

	return src, nil
}

// Next implements Source. Blank lines are skipped; malformed lines are logged and skipped.
func (s *JSONLines) Next(ctx context.Context) (posture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return posture.Frame{}, err
	}

	s.startOnce.Do(func() { go s.scan() })

	for {
		if s.err != nil {
			return posture.Frame{}, s.err
		}

		var next scannedLine

		select {
		case <-ctx.Done():
			return posture.Frame{}, ctx.Err()
		case next = <-s.lines:
		}

		if next.err != nil {
			s.err = next.err
			continue
		}

		s.line++

		data := bytes.TrimSpace(next.data)
		if len(data) == 0 {
			continue
		}

		frame, err := Decode(data, s.index)
		if err != nil {
			logger.WarnKV(ctx, "Skipping malformed frame", "line", s.line, "error", err)
			continue
		}

		s.index++

		return frame, nil
	}
}

// Close implements Source. Readers passed to NewJSONLines are not closed.
// A scan blocked in such a reader ends when the reader returns.
func (s *JSONLines) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// scan feeds lines to Next until the reader is exhausted or the source is closed.
func (s *JSONLines) scan() {
	for s.scanner.Scan() {
		line := scannedLine{data: bytes.Clone(s.scanner.Bytes())}

		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}

	end := scannedLine{err: io.EOF}
	if err := s.scanner.Err(); err != nil {
		end.err = fmt.Errorf("read frames: %w", err)
	}

	select {
	case s.lines <- end:
	case <-s.done:
	}
}
