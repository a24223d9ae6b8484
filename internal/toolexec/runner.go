// Package toolexec runs the external tools the docking pipeline drives
// (vina, MGLTools python, the visualization interpreter) and streams
// their combined output back through the run log.
package toolexec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// Invocation describes one external tool call.
type Invocation struct {
	Path string   // executable to run
	Args []string // arguments, not including the executable
	Dir  string   // working directory; empty inherits the caller's
	Env  []string // extra KEY=VALUE entries appended to the inherited environment
}

// CommandLine renders the invocation the way it is echoed to the log.
func (inv Invocation) CommandLine() string {
	if len(inv.Args) == 0 {
		return inv.Path
	}
	return inv.Path + " " + strings.Join(inv.Args, " ")
}

// Result reports how a child process exited.
type Result struct {
	// ExitCode is the child's exit status. For a signal-terminated
	// child it is 128 plus the signal number, matching shell
	// convention.
	ExitCode int

	// Interrupted is true when the child was killed by a signal
	// rather than exiting on its own.
	Interrupted bool
}

// Runner executes external tools. Implementations stream the child's
// combined stdout and stderr to the sink line by line as they arrive;
// the call blocks until the child terminates.
type Runner interface {
	Run(inv Invocation, sink runlog.Logger) (Result, error)
	LookPath(file string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// LookPath reports where file would run from.
func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run echoes the command line, spawns the child with stderr folded
// into stdout, and forwards each output line to sink before returning
// the exit status. Output is never buffered whole; docking tools can
// emit very large logs.
func (ExecRunner) Run(inv Invocation, sink runlog.Logger) (Result, error) {
	sink.Printf("invoking: %s", inv.CommandLine())

	cmd := exec.Command(inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("attaching pipe to %s: %w", inv.Path, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("starting %s: %w", inv.Path, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sink.Print(scanner.Text())
	}
	scanErr := scanner.Err()

	err = cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res := Result{ExitCode: exitErr.ExitCode()}
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				res.ExitCode = 128 + int(status.Signal())
				res.Interrupted = true
			}
			return res, nil
		}
		return Result{ExitCode: -1}, fmt.Errorf("waiting for %s: %w", inv.Path, err)
	}

	if scanErr != nil {
		return Result{ExitCode: -1}, fmt.Errorf("reading output of %s: %w", inv.Path, scanErr)
	}
	return Result{}, nil
}

// MockRunner scripts tool behavior for tests and records every
// invocation it receives.
type MockRunner struct {
	mu sync.Mutex

	// RunFunc, when set, decides the outcome of each Run call.
	// When nil every call succeeds with exit status 0.
	RunFunc func(inv Invocation, sink runlog.Logger) (Result, error)

	// MissingTools lists executables LookPath should report as not
	// installed.
	MissingTools map[string]bool

	invocations []Invocation
}

// Run records the invocation and delegates to RunFunc.
func (m *MockRunner) Run(inv Invocation, sink runlog.Logger) (Result, error) {
	m.mu.Lock()
	m.invocations = append(m.invocations, inv)
	fn := m.RunFunc
	m.mu.Unlock()

	sink.Printf("invoking: %s", inv.CommandLine())
	if fn == nil {
		return Result{}, nil
	}
	return fn(inv, sink)
}

// LookPath resolves file to itself unless it is listed as missing.
func (m *MockRunner) LookPath(file string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MissingTools[file] {
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
	return file, nil
}

// Invocations returns a copy of all recorded invocations.
func (m *MockRunner) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Invocation, len(m.invocations))
	copy(out, m.invocations)
	return out
}

// CallCount returns how many times Run was called.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invocations)
}
