package engine

import "time"

// Outcome classifies how an execution attempt ended. Callers are expected
// to switch on all three variants.
type Outcome int

const (
	// OutcomeOK means the process ran to completion. A non-zero exit
	// status is still OK: the script's own errors are part of its output.
	OutcomeOK Outcome = iota

	// OutcomeTimeout means the process exceeded the wall-clock bound and
	// was killed. Partial output is discarded.
	OutcomeTimeout

	// OutcomeLaunchFailed means the process never ran (interpreter
	// missing, permission denied, temp file error).
	OutcomeLaunchFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeLaunchFailed:
		return "launch_failed"
	default:
		return "unknown"
	}
}

// Result holds the outcome of one execution attempt.
type Result struct {
	RunID    string        // unique identifier for this run
	Outcome  Outcome       // how the attempt ended
	Output   string        // combined stdout+stderr, bounded; empty unless OutcomeOK
	Duration time.Duration // wall-clock time spent
	Err      error         // underlying error for OutcomeLaunchFailed; log only, never user-facing
}
