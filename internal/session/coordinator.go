package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/michaelbrown/runlet/internal/analyzer"
	"github.com/michaelbrown/runlet/internal/engine"
	"github.com/michaelbrown/runlet/internal/storage"
)

// Executor runs a script against ordered input values. Satisfied by
// *engine.Engine; tests substitute a fake.
type Executor interface {
	Execute(ctx context.Context, source string, inputs []string) engine.Result
}

// Recorder persists completed run attempts. Satisfied by storage.Store.
type Recorder interface {
	RecordRun(ctx context.Context, run *storage.Run) error
}

const greeting = `Welcome to runlet.

Send me a script and I will run it, collecting any input values it needs
one message at a time.

Commands:
/run    - run a script
/cancel - cancel the current run
/help   - how it works`

const helpText = `How it works:

- Plain input() reads: I detect how many and ask for each value in turn.
- input() inside a loop: the static count is unreliable, so I ask you for
  the TOTAL number of inputs first.
- Slow scripts (sleeps, heavy printing, infinite loops) are killed after
  the execution timeout.

Use /cancel at any time to abandon the current run.`

// Coordinator owns the session store and applies inbound messages to the
// per-requester state machine. Messages for one requester are serialized by
// that session's mutex; distinct requesters proceed independently.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	exec     Executor
	recorder Recorder // may be nil; run history is best-effort
}

// NewCoordinator creates a coordinator. recorder may be nil to disable run
// history.
func NewCoordinator(exec Executor, recorder Recorder) *Coordinator {
	return &Coordinator{
		sessions: make(map[string]*Session),
		exec:     exec,
		recorder: recorder,
	}
}

// session returns the requester's session, creating it idle on first use.
func (c *Coordinator) session(requesterID string) *Session {
	c.mu.RLock()
	s, ok := c.sessions[requesterID]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[requesterID]; ok {
		return s
	}
	s = &Session{}
	c.sessions[requesterID] = s
	return s
}

// State reports the requester's current conversational state.
func (c *Coordinator) State(requesterID string) State {
	s := c.session(requesterID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Greet clears the requester's session and returns the welcome text.
func (c *Coordinator) Greet(requesterID string) []Reply {
	s := c.session(requesterID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return []Reply{{Kind: KindInfo, Text: greeting}}
}

// Help returns usage text without touching session state.
func (c *Coordinator) Help(requesterID string) []Reply {
	return []Reply{{Kind: KindInfo, Text: helpText}}
}

// StartRun clears the requester's session and prompts for script source.
func (c *Coordinator) StartRun(requesterID string) []Reply {
	s := c.session(requesterID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.state = StateAwaitingCode
	return []Reply{{Kind: KindPrompt, Text: "Send your script:"}}
}

// Cancel abandons the current run, if any.
func (c *Coordinator) Cancel(requesterID string) []Reply {
	s := c.session(requesterID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return []Reply{{Kind: KindInfo, Text: "Nothing to cancel."}}
	}
	s.reset()
	return []Reply{{Kind: KindInfo, Text: "Run cancelled."}}
}

// HandleText applies a plain inbound message to the requester's state.
// Text arriving while idle is ignored; greeting that is a transport concern.
func (c *Coordinator) HandleText(ctx context.Context, requesterID, text string) []Reply {
	s := c.session(requesterID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAwaitingCode:
		return c.receiveCode(ctx, requesterID, s, text)
	case StateAwaitingInputCount:
		return c.receiveInputCount(s, text)
	case StateAwaitingInput:
		return c.receiveInput(ctx, requesterID, s, text)
	default:
		return nil
	}
}

func (c *Coordinator) receiveCode(ctx context.Context, requesterID string, s *Session, text string) []Reply {
	code := strings.TrimSpace(text)
	report := analyzer.Analyze(code)

	s.source = code
	s.required = report.InputCount
	s.inputs = nil
	s.loopDetected = report.HasLoop

	// A loop makes the static count untrustworthy; ask for the true total.
	if report.InputCount > 0 && report.HasLoop {
		s.state = StateAwaitingInputCount
		return []Reply{{
			Kind: KindPrompt,
			Text: "Your script reads input inside a loop, so I cannot count the reads myself.\nEnter the TOTAL number of inputs it will read:",
		}}
	}

	if report.InputCount == 0 {
		return c.runAndReset(ctx, requesterID, s)
	}

	s.state = StateAwaitingInput
	return []Reply{inputPrompt(1, s.required)}
}

func (c *Coordinator) receiveInputCount(s *Session, text string) []Reply {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		// Re-prompt without consuming anything or changing state.
		return []Reply{{Kind: KindError, Text: "Enter a positive whole number."}}
	}

	s.required = n
	s.state = StateAwaitingInput
	return []Reply{
		{Kind: KindInfo, Text: fmt.Sprintf("Collecting %d inputs.", n)},
		inputPrompt(1, n),
	}
}

func (c *Coordinator) receiveInput(ctx context.Context, requesterID string, s *Session, text string) []Reply {
	s.inputs = append(s.inputs, strings.TrimSpace(text))

	if len(s.inputs) < s.required {
		return []Reply{inputPrompt(len(s.inputs)+1, s.required)}
	}
	return c.runAndReset(ctx, requesterID, s)
}

// runAndReset executes the collected run and unconditionally returns the
// session to idle, whatever the outcome.
func (c *Coordinator) runAndReset(ctx context.Context, requesterID string, s *Session) []Reply {
	source, inputs := s.source, s.inputs
	defer s.reset()

	replies := []Reply{{Kind: KindInfo, Text: "Running your script..."}}

	res := c.exec.Execute(ctx, source, inputs)
	c.record(ctx, requesterID, source, inputs, res)

	switch res.Outcome {
	case engine.OutcomeOK:
		replies = append(replies, Reply{Kind: KindOutput, Text: res.Output})
	case engine.OutcomeTimeout:
		replies = append(replies, Reply{
			Kind: KindError,
			Text: "Execution timed out. Your script took too long to finish - reduce sleeps, loop counts, or output size.",
		})
	case engine.OutcomeLaunchFailed:
		log.Printf("run %s for %s failed to launch: %v", res.RunID, requesterID, res.Err)
		replies = append(replies, Reply{
			Kind: KindError,
			Text: "Could not run your script. Please try again later.",
		})
	}

	return replies
}

func (c *Coordinator) record(ctx context.Context, requesterID, source string, inputs []string, res engine.Result) {
	if c.recorder == nil {
		return
	}

	run := &storage.Run{
		ID:          res.RunID,
		RequesterID: requesterID,
		Source:      source,
		Inputs:      inputs,
		Outcome:     res.Outcome.String(),
		Output:      res.Output,
		Duration:    res.Duration,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.recorder.RecordRun(ctx, run); err != nil {
		log.Printf("failed to record run %s: %v", res.RunID, err)
	}
}

// inputPrompt builds the 1-indexed "input i of n" prompt.
func inputPrompt(i, total int) Reply {
	return Reply{Kind: KindPrompt, Text: fmt.Sprintf("Enter input %d of %d:", i, total)}
}
