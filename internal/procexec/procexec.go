// Package procexec runs external executables and probes for their presence.
//
// Everything that shells out goes through the Invoker interface so callers
// can substitute a fake in tests. ExecInvoker is the os/exec implementation;
// it captures stdout and stderr, feeds optional stdin, and enforces a
// per-command deadline.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout is returned when a command exceeds Command.Timeout.
var ErrTimeout = errors.New("command timed out")

// ErrNotFound is returned when the executable cannot be located.
var ErrNotFound = errors.New("executable not found")

const waitDelay = time.Second

// Command describes one external process invocation.
type Command struct {
	// Name is the executable name or path.
	Name string
	// Args are passed verbatim, without shell interpretation.
	Args []string
	// Stdin is written to the process's standard input when non-nil.
	Stdin []byte
	// Timeout bounds the run. Zero means only ctx bounds it.
	Timeout time.Duration
}

// String renders the command for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Invoker runs external commands.
//
// Run returns a nil error for any process that started and exited, including
// a non-zero exit status; callers inspect Result.ExitCode. A non-nil error
// means the process could not be started, was killed by Command.Timeout
// (ErrTimeout), or ctx was cancelled or reached its own deadline.
type Invoker interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecInvoker runs commands with os/exec.
type ExecInvoker struct {
	logger *zap.Logger
}

// NewExecInvoker creates an invoker. A nil logger disables logging.
func NewExecInvoker(logger *zap.Logger) *ExecInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecInvoker{logger: logger}
}

// Run executes cmd and waits for it to finish.
func (e *ExecInvoker) Run(ctx context.Context, cmd Command) (Result, error) {
	parent := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	// Grandchildren may hold the output pipes open after the child is killed.
	c.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	// Only the per-command deadline is a timeout; the caller's own
	// cancellation or deadline is passed through unchanged.
	if err := parent.Err(); err != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w after %s", cmd.Name, ErrTimeout, res.Duration.Round(time.Millisecond))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			e.logger.Debug("command exited non-zero",
				zap.String("command", cmd.String()),
				zap.Int("exit_code", res.ExitCode),
				zap.Duration("duration", res.Duration))
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return res, fmt.Errorf("%s: %w", cmd.Name, ErrNotFound)
		}
		return res, fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	e.logger.Debug("command finished",
		zap.String("command", cmd.String()),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// Excerpt returns at most n trailing bytes of b as trimmed text. Tools tend
// to print the useful part of a failure last.
func Excerpt(b []byte, n int) string {
	if n > 0 && len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
