package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	// maxOutputBytes caps each captured stream. CIM results for a single
	// class comfortably fit; anything larger is truncated.
	maxOutputBytes = 4 << 20

	// waitDelay is how long Wait keeps reading pipes after the process is killed.
	waitDelay = 2 * time.Second

	// stderrSnippet limits how much stderr is copied into error messages.
	stderrSnippet = 512
)

// Config describes one command invocation.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable name or path.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format),
	// appended to the parent environment.
	Env []string

	// WorkDir is the working directory. If empty, inherits from the parent.
	WorkDir string

	// Timeout bounds the run. Zero means only ctx applies.
	Timeout time.Duration
}

// Result is the outcome of a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner runs commands. It is implemented by Exec and by test fakes.
type Runner interface {
	Run(ctx context.Context, cfg Config) (Result, error)
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Exec is the Runner backed by os/exec.
type Exec struct {
	logger Logger
}

// NewExec creates an Exec runner.
func NewExec() *Exec {
	return &Exec{logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (e *Exec) SetLogger(logger Logger) {
	e.logger = logger
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, cfg Config) (Result, error) {
	res, err := Run(ctx, cfg)
	fields := []any{
		"name", cfg.Name,
		"exit_code", res.ExitCode,
		"duration_ms", res.Duration.Milliseconds(),
	}
	if err != nil {
		e.logger.Debug("command failed", append(fields, "error", err)...)
		return res, err
	}
	e.logger.Debug("command completed", fields...)
	return res, nil
}

// Run executes the command described by cfg and waits for it to exit.
//
// A result is returned even on failure so callers can inspect partial output.
//
// Parameters:
//   - ctx: Context for cancellation; cancelling kills the process
//   - cfg: Command description
//
// Returns:
//   - Result: Captured output, exit code and duration
//   - error: ErrNoBinary, ErrTimeout, ErrExitStatus (with stderr), or a start error
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Binary == "" {
		return Result{ExitCode: -1}, ErrNoBinary
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, cfg.Binary, cfg.Args...) //nolint:gosec // Binary and args come from configuration, not user input
	cmd.WaitDelay = waitDelay
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdout := &cappedBuffer{limit: maxOutputBytes}
	stderr := &cappedBuffer{limit: maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Binary
	}

	// The parent context ending is the caller's decision, not a timeout.
	if ctx.Err() != nil {
		return res, fmt.Errorf("running %s: %w", name, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("running %s: %w after %s", name, ErrTimeout, cfg.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, fmt.Errorf("running %s: %w %d: %s", name, ErrExitStatus, res.ExitCode, snippet(res.Stderr))
	}
	return res, fmt.Errorf("starting %s: %w", name, err)
}

// cappedBuffer discards writes beyond limit while reporting them as written,
// so a chatty child never blocks on a full pipe.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func snippet(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > stderrSnippet {
		s = s[:stderrSnippet] + "..."
	}
	return s
}
