// Package engine runs submitted scripts in an isolated child process with
// bounded wall-clock time and bounded output capture.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds one execution's wall-clock time.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxOutput bounds the combined output length in characters.
	DefaultMaxOutput = 3000

	// noOutputPlaceholder is returned when a run produces nothing, so
	// callers never render an empty success message.
	noOutputPlaceholder = "No output"

	// truncationMarker is appended when output is cut at the bound.
	truncationMarker = "\n...output truncated"
)

// Engine executes script source against an ordered list of input values.
// It holds no per-run state; one Engine is shared by all sessions.
type Engine struct {
	Command   []string      // interpreter argv; the script path is appended
	Suffix    string        // temp file suffix
	Timeout   time.Duration // 0 = DefaultTimeout
	MaxOutput int           // characters, 0 = DefaultMaxOutput
	WorkDir   string        // temp file directory; "" = os.TempDir()
}

// New builds an Engine from an interpreter profile.
func New(p Profile) *Engine {
	e := &Engine{
		Command:   p.Command,
		Suffix:    p.Suffix,
		MaxOutput: p.MaxOutput,
	}
	if p.TimeoutSeconds > 0 {
		e.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	return e
}

// Execute writes source to a fresh temp file, runs the interpreter against
// it with inputs fed line-by-line on stdin, and returns the bounded combined
// output. The temp file is removed on every exit path. Execute never
// consults or mutates session state; it is safe for concurrent use.
func (e *Engine) Execute(ctx context.Context, source string, inputs []string) Result {
	runID := uuid.New().String()
	start := time.Now()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	dir := e.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}

	f, err := os.CreateTemp(dir, "runlet-*"+e.Suffix)
	if err != nil {
		return Result{
			RunID:    runID,
			Outcome:  OutcomeLaunchFailed,
			Duration: time.Since(start),
			Err:      fmt.Errorf("creating script file: %w", err),
		}
	}
	scriptPath := f.Name()
	defer os.Remove(scriptPath)

	if _, err := f.WriteString(source); err != nil {
		f.Close()
		return Result{
			RunID:    runID,
			Outcome:  OutcomeLaunchFailed,
			Duration: time.Since(start),
			Err:      fmt.Errorf("writing script file: %w", err),
		}
	}
	if err := f.Close(); err != nil {
		return Result{
			RunID:    runID,
			Outcome:  OutcomeLaunchFailed,
			Duration: time.Since(start),
			Err:      fmt.Errorf("closing script file: %w", err),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append([]string{}, e.Command...), scriptPath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	// Kill the whole process group on timeout so descendants the script
	// spawned do not outlive it.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second

	// A nil Stdin reads from the null device: end-of-input is signalled
	// immediately when there is nothing to feed.
	if len(inputs) > 0 {
		cmd.Stdin = strings.NewReader(strings.Join(inputs, "\n") + "\n")
	}

	// Cap capture one byte past the bound so truncation is detectable
	// without letting a flooding child exhaust memory.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput + 1}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput + 1}

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return Result{RunID: runID, Outcome: OutcomeTimeout, Duration: time.Since(start)}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{
				RunID:    runID,
				Outcome:  OutcomeLaunchFailed,
				Duration: time.Since(start),
				Err:      fmt.Errorf("launching %s: %w", argv[0], runErr),
			}
		}
		// Non-zero exit: the script's own failure, reported via its output.
	}

	// Output-stream-major ordering: all of stdout, then all of stderr.
	output := stdout.String() + stderr.String()
	if output == "" {
		output = noOutputPlaceholder
	}
	if len(output) > maxOutput {
		output = output[:maxOutput] + truncationMarker
	}

	return Result{RunID: runID, Outcome: OutcomeOK, Output: output, Duration: time.Since(start)}
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
