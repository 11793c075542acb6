package censor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"bleeparr/internal/logging"
	"bleeparr/internal/services"
)

// Outcome is the result of one invocation.
type Outcome struct {
	Success     bool
	SwearsFound int
	Error       string
	OutputPath  string
	Duration    time.Duration
}

// Result captures a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "censor")
	}
}

// Runner invokes the censoring tool one file at a time.
type Runner struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger

	mu sync.Mutex
}

// New constructs a runner. binary is used when a Config does not name one; a
// non-positive timeout disables the bound.
func New(binary string, timeout time.Duration, opts ...Option) *Runner {
	r := &Runner{
		binary:  strings.TrimSpace(binary),
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(nil, "censor"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run censors path and reports the outcome. It never returns an error; every
// failure is described by the Outcome. Calls are serialized.
func (r *Runner) Run(ctx context.Context, path string, meta Metadata, cfg Config, dryRun bool) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = r.binary
	}
	if binary == "" {
		return failure(services.Wrap(services.ErrConfiguration, "censor", "run", "tool binary not configured", nil))
	}
	if _, err := os.Stat(path); err != nil {
		return failure(services.Wrap(services.ErrNotFound, "censor", "stat input", path, err))
	}
	if cfg.OutputDirectory != "" && !dryRun {
		if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
			return failure(services.Wrap(services.ErrConfiguration, "censor", "create output directory", cfg.OutputDirectory, err))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := r.logger.With(
		logging.String(logging.FieldItemKind, meta.Kind),
		logging.Int64(logging.FieldItemID, meta.ItemID),
	)
	args := BuildArgs(path, cfg, dryRun)
	logger.Info("censoring tool started",
		logging.String(logging.FieldEventType, "tool_start"),
		logging.String("input", path),
		logging.String("title", meta.Title),
		logging.Bool("dry_run", dryRun),
	)
	logger.Debug("censoring tool arguments", logging.String("binary", binary), logging.Any("args", args))

	started := time.Now()
	result, err := r.exec.Run(runCtx, binary, args)
	elapsed := time.Since(started)

	if err != nil {
		var out Outcome
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			out = failure(services.Wrap(services.ErrTimeout, "censor", "run", fmt.Sprintf("tool exceeded %s", r.timeout), nil))
		case result.ExitCode != 0 && strings.TrimSpace(result.Stderr) != "":
			out = Outcome{Error: strings.TrimSpace(result.Stderr)}
		default:
			out = failure(services.Wrap(services.ErrExternalTool, "censor", "run", "", err))
		}
		out.Duration = elapsed
		logging.WarnWithContext(logger, "censoring tool failed", "tool_failed",
			logging.String("input", path),
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", elapsed),
			logging.String("error", out.Error),
			logging.String(logging.FieldImpact, "item recorded as failed"),
		)
		return out
	}

	summary := ParseSummary(result.Stdout)
	out := Outcome{
		Success:     true,
		SwearsFound: summary.Count(),
		Duration:    elapsed,
	}
	if !dryRun {
		out.OutputPath = summary.OutputPath
		if out.OutputPath == "" {
			out.OutputPath = ExpectedOutput(path, cfg)
		}
	}
	if !summary.Found {
		logging.WarnWithContext(logger, "tool output had no mute summary", "summary_missing",
			logging.String("input", path),
			logging.String(logging.FieldImpact, "swear count recorded as zero"),
		)
	}
	logger.Info("censoring tool finished",
		logging.String(logging.FieldEventType, "tool_complete"),
		logging.Int("swears_found", out.SwearsFound),
		logging.String("output", out.OutputPath),
		logging.Duration("duration", elapsed),
	)
	return out
}

func failure(err error) Outcome {
	return Outcome{Error: err.Error()}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	configureProcess(cmd)

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return result, fmt.Errorf("run %s: %w", binary, err)
	}
	return result, nil
}
