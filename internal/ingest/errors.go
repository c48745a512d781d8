package ingest

import "fmt"

// PhaseError attributes a database failure to the pipeline phase it
// happened in (logging.PhaseInit, PhaseStage or PhaseMerge).
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s: %v", e.Phase, e.Err) }

func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}
