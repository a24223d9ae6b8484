package pipeline

import "fmt"

// MissingToolError aborts a run during preflight: a stage's external
// tool is not resolvable, so nothing is executed.
type MissingToolError struct {
	Stage string
	Tool  string
	Err   error
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("stage %s requires tool %q which was not found", e.Stage, e.Tool)
}

func (e *MissingToolError) Unwrap() error { return e.Err }

// MissingInputError is stage-fatal: a stage found none of its required
// inputs. Individual missing items within a populated input set are
// per-item failures, not this.
type MissingInputError struct {
	Stage string
	What  string
	Dir   string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("stage %s: no %s found in %s", e.Stage, e.What, e.Dir)
}

// ChildExitError carries the exact nonzero status of an external tool
// whose failure aborts its stage.
type ChildExitError struct {
	Tool   string
	Status int
}

func (e *ChildExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Status)
}
