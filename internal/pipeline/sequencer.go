// Package pipeline drives the docking workflow: an ordered list of
// stages executed strictly in sequence, aborting the whole run on the
// first nonzero stage status and propagating that status verbatim.
package pipeline

import (
	"context"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/timeutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// InterruptedStatus is the run's exit status when it was cut short by
// an interrupt rather than a stage failure.
const InterruptedStatus = 130

// Stage is one step of the pipeline. Run returns the stage's exit
// status; zero means success and anything else aborts the run with
// that status.
type Stage struct {
	Name  string // short identifier, e.g. "dock"
	Title string // human line logged as the stage start marker
	Tool  string // executable resolved during preflight; empty for in-process stages
	Run   func(ctx context.Context) int
}

// RunRecorder persists run lifecycle events. Recording failures are
// warnings; they never affect the pipeline outcome.
type RunRecorder interface {
	StartRun(startedAt time.Time, stages []string) (string, error)
	CompleteRun(runID string, exitStatus int, completedAt time.Time) error
}

type ctxKey int

const runIDKey ctxKey = iota

// WithRunID tags a context with the recorder-issued run ID so stages
// can attach their results to the run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFrom returns the run ID carried by ctx, or "" when the run is
// not being recorded.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Sequencer executes stages in declared order.
type Sequencer struct {
	Runner   toolexec.Runner
	Log      runlog.Logger
	Recorder RunRecorder    // optional
	Clock    timeutil.Clock // defaults to the real clock
}

// Run preflights every stage's tool, then executes the stages in
// order. The returned status is 0 on success, the first failing
// stage's status otherwise, or InterruptedStatus when the run was
// interrupted. No stage runs after a failure.
func (s *Sequencer) Run(ctx context.Context, stages []Stage) int {
	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	for _, st := range stages {
		if st.Tool == "" {
			continue
		}
		if _, err := s.Runner.LookPath(st.Tool); err != nil {
			s.Log.Printf("[ERROR] %v", &MissingToolError{Stage: st.Name, Tool: st.Tool, Err: err})
			return 1
		}
	}

	var runID string
	if s.Recorder != nil {
		id, err := s.Recorder.StartRun(clock.Now(), stageNames(stages))
		if err != nil {
			s.Log.Printf("[WARN] Could not record run start: %v", err)
		} else {
			runID = id
			ctx = WithRunID(ctx, runID)
		}
	}

	status := s.runStages(ctx, stages)

	if runID != "" {
		if err := s.Recorder.CompleteRun(runID, status, clock.Now()); err != nil {
			s.Log.Printf("[WARN] Could not record run completion: %v", err)
		}
	}
	return status
}

func (s *Sequencer) runStages(ctx context.Context, stages []Stage) int {
	for i, st := range stages {
		if ctx.Err() != nil {
			s.Log.Print("[ABORTED] Interrupted")
			return InterruptedStatus
		}

		s.Log.Printf("[%d/%d] %s", i+1, len(stages), st.Title)
		status := st.Run(ctx)
		if status != 0 {
			if ctx.Err() != nil || status == InterruptedStatus {
				s.Log.Print("[ABORTED] Interrupted")
				return InterruptedStatus
			}
			s.Log.Printf("[ERROR] Stage failed with code %d: %s", status, st.Name)
			return status
		}
	}

	s.Log.Print("Workflow completed successfully!")
	return 0
}

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	return names
}
