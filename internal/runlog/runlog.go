// Package runlog tees pipeline output to the console and to a
// timestamped log file, so a finished run leaves a complete transcript
// next to its results.
package runlog

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
)

// Logger is the line-oriented interface pipeline stages write to.
type Logger interface {
	Print(msg string)
	Printf(format string, args ...interface{})
}

// NopLogger discards everything. Useful for tests that only care
// about return values.
type NopLogger struct{}

func (NopLogger) Print(msg string)                          {}
func (NopLogger) Printf(format string, args ...interface{}) {}

// MemoryLogger records lines for test assertions.
type MemoryLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *MemoryLogger) Print(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *MemoryLogger) Printf(format string, args ...interface{}) {
	l.Print(fmt.Sprintf(format, args...))
}

// Lines returns a copy of everything logged so far.
func (l *MemoryLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Contains reports whether any logged line contains substr.
func (l *MemoryLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Multi returns a Logger that forwards each line to all of the given
// loggers, in order.
func Multi(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

type multiLogger []Logger

func (m multiLogger) Print(msg string) {
	for _, l := range m {
		l.Print(msg)
	}
}

func (m multiLogger) Printf(format string, args ...interface{}) {
	m.Print(fmt.Sprintf(format, args...))
}

// ToWriter adapts an io.Writer into a Logger, appending a newline to
// each line. Write errors are dropped; callers that care should check
// the writer when they close it.
func ToWriter(w io.Writer) Logger {
	return writerLogger{w}
}

type writerLogger struct {
	w io.Writer
}

func (l writerLogger) Print(msg string) {
	fmt.Fprintln(l.w, msg)
}

func (l writerLogger) Printf(format string, args ...interface{}) {
	l.Print(fmt.Sprintf(format, args...))
}

// FileNameFor returns the transcript file name for a run started at t.
func FileNameFor(t time.Time) string {
	return fmt.Sprintf("pipeline_%s.log", t.Format("2006-01-02_150405"))
}

// Sink writes each line to the console and appends it to the
// transcript file. Safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	console io.Writer
	file    io.WriteCloser
	path    string
}

// New creates dir if needed and opens a fresh transcript named after
// the start time. The caller owns the returned Sink and must Close it.
func New(fs fsutil.FileSystem, dir string, started time.Time, console io.Writer) (*Sink, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, FileNameFor(started))
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	return &Sink{console: console, file: f, path: path}, nil
}

// Path returns the transcript file location.
func (s *Sink) Path() string { return s.path }

// Print writes one line to both destinations.
func (s *Sink) Print(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.console, msg)
	if s.file != nil {
		fmt.Fprintln(s.file, msg)
	}
}

// Printf formats a message and writes it as one line.
func (s *Sink) Printf(format string, args ...interface{}) {
	s.Print(fmt.Sprintf(format, args...))
}

// Banner writes the run header.
func (s *Sink) Banner(title string, started time.Time) {
	rule := strings.Repeat("=", 40)
	s.Print(rule)
	s.Print(title)
	s.Printf("Started at %s", started.Format("2006-01-02 15:04:05"))
	s.Print(rule)
}

// Close closes the transcript file. Print still reaches the console
// afterwards.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
