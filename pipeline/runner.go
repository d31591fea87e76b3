package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/moseq-tools/fixturefetch/internal/ctxlog"
)

// Runner executes job steps sequentially.
type Runner struct {
	// Stdout and Stderr receive step output. Default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Shell is the interpreter used for steps. Defaults to "/bin/sh".
	Shell string

	// BaseEnv is the base environment for steps. Defaults to os.Environ().
	BaseEnv []string
}

// NewRunner creates a runner with default output streams and shell.
func NewRunner() *Runner {
	return &Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Shell:  "/bin/sh",
	}
}

// StepResult records the outcome of a single step.
type StepResult struct {
	// Index is the zero-based position of the step within the job.
	Index int

	// Command is the shell command that was run.
	Command string

	// Duration is how long the step took.
	Duration time.Duration

	// Err is the execution error, nil on success.
	Err error
}

// JobResult records the outcome of a job run.
type JobResult struct {
	// Job is the name of the job that ran.
	Job string

	// Steps holds per-step results, in execution order. Steps after a
	// failure are not present.
	Steps []StepResult

	// Duration is how long the whole job took.
	Duration time.Duration
}

// Failed reports whether any executed step failed.
func (r *JobResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the job's steps in declared order, aborting on the first step
// that exits non-zero. The returned result always covers the steps that ran,
// even when an error is returned.
func (r *Runner) Run(ctx context.Context, job *Job) (*JobResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("job", job.Name)
	if job.Runtime != "" {
		logger = logger.With("runtime", job.Runtime)
	}

	start := time.Now()
	result := &JobResult{Job: job.Name}

	for i, step := range job.Steps {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("pipeline: job %q cancelled before step %d: %w", job.Name, i, ctx.Err())
		default:
		}

		logger.Info("running step", "index", i, "command", step)

		stepStart := time.Now()
		err := r.runStep(ctx, job, step)
		sr := StepResult{
			Index:    i,
			Command:  step,
			Duration: time.Since(stepStart),
			Err:      err,
		}
		result.Steps = append(result.Steps, sr)

		if err != nil {
			logger.Error("step failed", "index", i, "command", step, "error", err)
			result.Duration = time.Since(start)
			return result, fmt.Errorf("pipeline: job %q step %d (%s): %w", job.Name, i, step, err)
		}

		logger.Info("step finished", "index", i, "duration", sr.Duration)
	}

	result.Duration = time.Since(start)
	logger.Info("job finished", "steps", len(result.Steps), "duration", result.Duration)
	return result, nil
}

// runStep runs one shell command with the job's environment.
func (r *Runner) runStep(ctx context.Context, job *Job, step string) error {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", step)
	cmd.Dir = job.WorkDir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	env := r.BaseEnv
	if env == nil {
		env = os.Environ()
	}
	for k, v := range job.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		return err
	}
	return nil
}
