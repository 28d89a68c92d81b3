package shtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/acarl005/stripansi"
	"go.uber.org/zap"

	"github.com/eugenenazirov/litrun/internal/discovery"
	"github.com/eugenenazirov/litrun/internal/suite"
)

// DefaultShell runs the RUN: commands unless WithShell overrides it.
const DefaultShell = "bash"

// waitDelay bounds how long a cancelled command may keep its output pipes open.
const waitDelay = time.Second

// Executor runs test scripts of a single suite.
type Executor struct {
	suite    suite.Config
	shell    string
	pipefail bool
	env      []string
	logger   *zap.Logger
}

// Option configures Executor behaviour.
type Option func(*Executor)

// WithShell overrides the shell binary used for RUN: commands.
func WithShell(shell string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithPipefail controls whether a pipeline fails when any of its stages fails.
// The shell must understand "-o pipefail".
func WithPipefail(enabled bool) Option {
	return func(e *Executor) {
		e.pipefail = enabled
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of every command.
func WithEnv(env ...string) Option {
	return func(e *Executor) {
		e.env = append(e.env, env...)
	}
}

// WithLogger sets the logger used for per-command debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an Executor for the tests of cfg.
func NewExecutor(cfg suite.Config, opts ...Option) *Executor {
	e := &Executor{
		suite:    cfg,
		shell:    DefaultShell,
		pipefail: true,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes test and classifies the outcome. It never returns an error:
// problems preparing or running the script are reported through the status.
func (e *Executor) Run(ctx context.Context, test discovery.Test) Result {
	start := time.Now()
	result := Result{
		Name:    test.Name,
		RelPath: test.RelPath,
	}

	script, err := ParseFile(test.SourcePath)
	if err != nil {
		return e.unresolved(result, start, err)
	}

	if err := os.MkdirAll(TempDir(test), 0o755); err != nil {
		return e.unresolved(result, start, fmt.Errorf("create temp dir: %w", err))
	}

	subs := Substitutions(e.suite, test)
	execDir := filepath.Dir(test.ExecPath)

	var output bytes.Buffer
	failed := false
	for _, raw := range script.Commands {
		command := Apply(raw, subs)
		fmt.Fprintf(&output, "$ %s\n", command)

		exitCode, runErr := e.runCommand(ctx, execDir, command, &output)
		e.logger.Debug("command finished",
			zap.String("test", test.Name),
			zap.String("command", command),
			zap.Int("exit_code", exitCode),
		)

		if ctxErr := ctx.Err(); ctxErr != nil {
			// Only an expired deadline is a timeout; a cancelled run leaves the test unresolved.
			result.Status = StatusTimeout
			if !errors.Is(ctxErr, context.DeadlineExceeded) {
				result.Status = StatusUnresolved
			}
			result.FailedCommand = command
			result.ExitCode = exitCode
			fmt.Fprintf(&output, "note: %v\n", ctxErr)
			result.Output = stripansi.Strip(output.String())
			result.Duration = time.Since(start)
			return result
		}

		if runErr == nil {
			continue
		}

		if !failed {
			failed = true
			result.FailedCommand = command
			result.ExitCode = exitCode
		}
		fmt.Fprintf(&output, "error: command failed: %v\n", runErr)
		if e.suite.Format.Strict {
			break
		}
	}

	result.Status = classify(failed, script.XFail)
	result.Output = stripansi.Strip(output.String())
	result.Duration = time.Since(start)
	return result
}

func (e *Executor) runCommand(ctx context.Context, dir, command string, output *bytes.Buffer) (int, error) {
	args := make([]string, 0, 4)
	if e.pipefail {
		args = append(args, "-o", "pipefail")
	}
	args = append(args, "-c", command)

	cmd := exec.CommandContext(ctx, e.shell, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.env...)
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return -1, err
}

func (e *Executor) unresolved(result Result, start time.Time, err error) Result {
	result.Status = StatusUnresolved
	result.ExitCode = -1
	result.Output = err.Error()
	result.Duration = time.Since(start)
	return result
}

func classify(failed, xfail bool) Status {
	switch {
	case failed && xfail:
		return StatusXFail
	case failed:
		return StatusFail
	case xfail:
		return StatusXPass
	default:
		return StatusPass
	}
}
