package eventlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// Repository defines persistence operations for issue events.
type Repository interface {
	Append(ctx context.Context, ev posture.Event) error
	Close() error
}

// Header is the first row of every event log.
//
//nolint:gochecknoglobals // Column names are part of the file format.
var Header = []string{"Tiempo (s)", "Issue", "Torso Angle", "Hip DX Norm", "L Elbow Angle", "R Elbow Angle"}

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("event log is closed")

// FileLog appends issue events to a CSV file on disk.
// Every row is flushed before Append returns.
type FileLog struct {
	// path is the filesystem location of the CSV file.
	path string
	// mu protects the writer and the file handle.
	mu   sync.Mutex
	file *os.File
	// out is what writer encodes into; a failed flush replaces writer with a fresh one over out.
	out    io.Writer
	writer *csv.Writer
}

// Open creates the log at path and writes the header.
// Without appendMode an existing file is truncated. With appendMode existing
// rows are kept and the header is written only when the file is empty.
func Open(path string, appendMode bool) (*FileLog, error) {
	path = filepath.Clean(path)

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(path, flags, config.DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat event log: %w", err)
	}

	log := &FileLog{
		path:   path,
		file:   file,
		out:    file,
		writer: newCSVWriter(file),
	}

	if info.Size() == 0 {
		if err = log.write(Header); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("write event log header: %w", err)
		}
	}

	return log, nil
}

// Path returns the cleaned location of the log file.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes one row for ev.
func (l *FileLog) Append(_ context.Context, ev posture.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}

	if err := l.write(Row(ev)); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	l.writer.Flush()
	flushErr := l.writer.Error()
	closeErr := l.file.Close()
	l.file = nil

	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}

	return nil
}

// Row formats ev as a log row: time and angles with two decimals, hip offset with four.
func Row(ev posture.Event) []string {
	return []string{
		strconv.FormatFloat(ev.Elapsed, 'f', 2, 64),
		ev.Kind.String(),
		strconv.FormatFloat(ev.Features.TorsoAngle, 'f', 2, 64),
		strconv.FormatFloat(ev.Features.HipDXNorm, 'f', 4, 64),
		strconv.FormatFloat(ev.Features.LeftElbowAngle, 'f', 2, 64),
		strconv.FormatFloat(ev.Features.RightElbowAngle, 'f', 2, 64),
	}
}

// write must be called with mu held or before the log is shared.
// csv.Writer keeps its first error forever, so a failed row gets a new writer
// and the next row is tried again on a clean one.
func (l *FileLog) write(record []string) error {
	err := l.writer.Write(record)
	if err == nil {
		l.writer.Flush()
		err = l.writer.Error()
	}

	if err != nil {
		l.writer = newCSVWriter(l.out)
		return err
	}

	return nil
}

// newCSVWriter returns a writer ending rows with CRLF.
func newCSVWriter(w io.Writer) *csv.Writer {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	return writer
}
