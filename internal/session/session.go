// Package session holds the per-requester conversation state machine that
// collects a script and its input values, and the coordinator that owns all
// sessions and drives the execution engine.
package session

import "sync"

// State is the conversational position of one requester's session.
type State int

const (
	// StateIdle is the initial and terminal-resting state.
	StateIdle State = iota

	// StateAwaitingCode means a run was started and the next message is
	// taken as script source.
	StateAwaitingCode

	// StateAwaitingInputCount means the script reads input inside a loop,
	// so the static count is unreliable and the user supplies the total.
	StateAwaitingInputCount

	// StateAwaitingInput means input values are being collected one
	// message at a time.
	StateAwaitingInput
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCode:
		return "awaiting_code"
	case StateAwaitingInputCount:
		return "awaiting_input_count"
	case StateAwaitingInput:
		return "awaiting_input"
	default:
		return "unknown"
	}
}

// Session is one requester's conversational and run-scoped state. It is
// created lazily, reused across runs, and never destroyed: a finished or
// cancelled run resets it to idle.
type Session struct {
	mu sync.Mutex // one inbound message at a time per requester

	state        State
	source       string   // submitted script, immutable for the run
	required     int      // inputs the engine must supply before executing
	inputs       []string // collected values, submission order
	loopDetected bool     // set once at code submission
}

// reset clears all run-scoped fields and returns the session to idle.
func (s *Session) reset() {
	s.state = StateIdle
	s.source = ""
	s.required = 0
	s.inputs = nil
	s.loopDetected = false
}

// ReplyKind classifies an outbound message so transports can render
// prompts, run output, and errors distinctly.
type ReplyKind string

const (
	KindInfo   ReplyKind = "info"
	KindPrompt ReplyKind = "prompt"
	KindOutput ReplyKind = "output"
	KindError  ReplyKind = "error"
)

// Reply is one outbound message produced by a transition.
type Reply struct {
	Kind ReplyKind `json:"kind"`
	Text string    `json:"text"`
}
