package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/michaelbrown/runlet/internal/engine"
	"github.com/michaelbrown/runlet/internal/storage"
)

type execCall struct {
	source string
	inputs []string
}

// fakeExecutor records calls and returns a canned result. If block is set,
// Execute signals started and waits until block is closed.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []execCall
	result  engine.Result
	block   chan struct{}
	started chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, source string, inputs []string) engine.Result {
	f.mu.Lock()
	f.calls = append(f.calls, execCall{source: source, inputs: append([]string{}, inputs...)})
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*storage.Run
}

func (f *fakeRecorder) RecordRun(ctx context.Context, run *storage.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func okExecutor(output string) *fakeExecutor {
	return &fakeExecutor{result: engine.Result{RunID: "run-1", Outcome: engine.OutcomeOK, Output: output}}
}

func lastKind(t *testing.T, replies []Reply) ReplyKind {
	t.Helper()
	if len(replies) == 0 {
		t.Fatal("expected at least one reply")
	}
	return replies[len(replies)-1].Kind
}

func TestNoInputsRunsImmediately(t *testing.T) {
	exec := okExecutor("hi\n")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	if got := c.State("alice"); got != StateAwaitingCode {
		t.Fatalf("state = %v, want awaiting_code", got)
	}

	replies := c.HandleText(ctx, "alice", `print("hi")`)
	if exec.callCount() != 1 {
		t.Fatalf("Execute called %d times, want 1", exec.callCount())
	}
	if len(exec.calls[0].inputs) != 0 {
		t.Errorf("inputs = %v, want empty", exec.calls[0].inputs)
	}
	if got := lastKind(t, replies); got != KindOutput {
		t.Errorf("last reply kind = %v, want output", got)
	}
	if replies[len(replies)-1].Text != "hi\n" {
		t.Errorf("output = %q, want %q", replies[len(replies)-1].Text, "hi\n")
	}
	if got := c.State("alice"); got != StateIdle {
		t.Errorf("state after run = %v, want idle", got)
	}
}

func TestFixedInputCountCollectsInOrder(t *testing.T) {
	exec := okExecutor("done\n")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	replies := c.HandleText(ctx, "alice", "a = input()\nb = input()")
	if got := c.State("alice"); got != StateAwaitingInput {
		t.Fatalf("state = %v, want awaiting_input", got)
	}
	if replies[0].Text != "Enter input 1 of 2:" {
		t.Errorf("prompt = %q, want 1-indexed with total", replies[0].Text)
	}

	replies = c.HandleText(ctx, "alice", "first")
	if replies[0].Text != "Enter input 2 of 2:" {
		t.Errorf("prompt = %q, want second ordinal", replies[0].Text)
	}
	if exec.callCount() != 0 {
		t.Fatal("execution must not start before all inputs arrive")
	}

	c.HandleText(ctx, "alice", "  second  ")
	if exec.callCount() != 1 {
		t.Fatalf("Execute called %d times, want 1", exec.callCount())
	}
	got := exec.calls[0].inputs
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("inputs = %v, want trimmed values in submission order", got)
	}
	if c.State("alice") != StateIdle {
		t.Error("expected idle after run")
	}
}

func TestLoopWithInputAsksForTotal(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	c.HandleText(ctx, "alice", "while True:\n    x = input()")
	if got := c.State("alice"); got != StateAwaitingInputCount {
		t.Fatalf("state = %v, want awaiting_input_count", got)
	}

	// The supplied total overrides the statically detected count of 1.
	replies := c.HandleText(ctx, "alice", "3")
	if got := c.State("alice"); got != StateAwaitingInput {
		t.Fatalf("state = %v, want awaiting_input", got)
	}
	last := replies[len(replies)-1].Text
	if last != "Enter input 1 of 3:" {
		t.Errorf("prompt = %q, want total of 3", last)
	}

	c.HandleText(ctx, "alice", "1")
	c.HandleText(ctx, "alice", "2")
	c.HandleText(ctx, "alice", "3")
	if exec.callCount() != 1 {
		t.Fatalf("Execute called %d times, want 1", exec.callCount())
	}
	if len(exec.calls[0].inputs) != 3 {
		t.Errorf("inputs = %v, want 3 values", exec.calls[0].inputs)
	}
}

func TestInvalidInputCountReprompts(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	c.HandleText(ctx, "alice", "for i in range(2):\n    input()")

	for _, bad := range []string{"zero", "-2", "0", "1.5", ""} {
		replies := c.HandleText(ctx, "alice", bad)
		if got := c.State("alice"); got != StateAwaitingInputCount {
			t.Fatalf("state after %q = %v, want awaiting_input_count", bad, got)
		}
		if got := lastKind(t, replies); got != KindError {
			t.Errorf("reply kind after %q = %v, want error re-prompt", bad, got)
		}
	}
	if exec.callCount() != 0 {
		t.Error("invalid totals must not trigger execution")
	}
}

func TestCancel(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	// Cancel while idle is a no-op, not an error.
	replies := c.Cancel("alice")
	if replies[0].Text != "Nothing to cancel." {
		t.Errorf("idle cancel = %q, want nothing-to-cancel notice", replies[0].Text)
	}

	c.StartRun("alice")
	c.HandleText(ctx, "alice", "x = input()")
	if c.State("alice") != StateAwaitingInput {
		t.Fatal("expected awaiting_input")
	}

	c.Cancel("alice")
	if c.State("alice") != StateIdle {
		t.Error("expected idle after cancel")
	}

	// Cleared run state: a fresh run starts from scratch.
	c.StartRun("alice")
	c.HandleText(ctx, "alice", `print(1)`)
	if exec.callCount() != 1 {
		t.Fatalf("Execute called %d times, want 1", exec.callCount())
	}
	if exec.calls[0].source != "print(1)" {
		t.Errorf("source = %q, stale run state leaked", exec.calls[0].source)
	}
}

func TestIdleTextIgnored(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)

	replies := c.HandleText(context.Background(), "alice", "hello there")
	if replies != nil {
		t.Errorf("replies = %v, want nil for idle text", replies)
	}
	if exec.callCount() != 0 {
		t.Error("idle text must not execute anything")
	}
}

func TestTimeoutResetsSession(t *testing.T) {
	exec := &fakeExecutor{result: engine.Result{RunID: "run-t", Outcome: engine.OutcomeTimeout}}
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	replies := c.HandleText(ctx, "alice", `print("slow")`)
	if got := lastKind(t, replies); got != KindError {
		t.Errorf("reply kind = %v, want error", got)
	}
	if !strings.Contains(replies[len(replies)-1].Text, "timed out") {
		t.Errorf("reply = %q, want timeout notice", replies[len(replies)-1].Text)
	}
	if c.State("alice") != StateIdle {
		t.Error("expected idle after timeout")
	}
}

func TestLaunchFailureIsGeneric(t *testing.T) {
	exec := &fakeExecutor{result: engine.Result{
		RunID:   "run-f",
		Outcome: engine.OutcomeLaunchFailed,
		Err:     context.DeadlineExceeded, // stand-in for a raw system error
	}}
	c := NewCoordinator(exec, nil)

	c.StartRun("alice")
	replies := c.HandleText(context.Background(), "alice", `print(1)`)
	last := replies[len(replies)-1]
	if last.Kind != KindError {
		t.Errorf("reply kind = %v, want error", last.Kind)
	}
	if strings.Contains(last.Text, "deadline") {
		t.Errorf("reply %q leaks the underlying system error", last.Text)
	}
	if c.State("alice") != StateIdle {
		t.Error("expected idle after launch failure")
	}
}

func TestGreetClearsSession(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)

	c.StartRun("alice")
	c.Greet("alice")
	if c.State("alice") != StateIdle {
		t.Error("greet must clear the session")
	}
}

func TestRunsAreRecorded(t *testing.T) {
	exec := okExecutor("out")
	rec := &fakeRecorder{}
	c := NewCoordinator(exec, rec)
	ctx := context.Background()

	c.StartRun("alice")
	c.HandleText(ctx, "alice", "x = input()")
	c.HandleText(ctx, "alice", "5")

	if len(rec.runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(rec.runs))
	}
	run := rec.runs[0]
	if run.RequesterID != "alice" || run.Outcome != "ok" {
		t.Errorf("run = %+v, want requester alice, outcome ok", run)
	}
	if len(run.Inputs) != 1 || run.Inputs[0] != "5" {
		t.Errorf("run.Inputs = %v, want [5]", run.Inputs)
	}
}

func TestRequestersAreIndependent(t *testing.T) {
	exec := okExecutor("ok")
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	c.StartRun("bob")
	c.HandleText(ctx, "alice", "x = input()")
	if c.State("bob") != StateAwaitingCode {
		t.Error("bob's state must be unaffected by alice's transitions")
	}
	if c.State("alice") != StateAwaitingInput {
		t.Error("alice's state must be unaffected by bob's transitions")
	}
}

func TestMidRunMessageQueuesBehindExecution(t *testing.T) {
	exec := &fakeExecutor{
		result:  engine.Result{RunID: "run-q", Outcome: engine.OutcomeOK, Output: "ok"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c := NewCoordinator(exec, nil)
	ctx := context.Background()

	c.StartRun("alice")
	runDone := make(chan struct{})
	go func() {
		c.HandleText(ctx, "alice", `print(1)`)
		close(runDone)
	}()
	<-exec.started

	// A second message for the same requester must wait for the run.
	cancelDone := make(chan struct{})
	go func() {
		c.Cancel("alice")
		close(cancelDone)
	}()

	select {
	case <-cancelDone:
		t.Fatal("mid-run message applied before the run finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(exec.block)
	<-runDone
	<-cancelDone

	if c.State("alice") != StateIdle {
		t.Error("expected idle after queued cancel applied post-run")
	}
}
