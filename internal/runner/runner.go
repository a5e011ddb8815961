package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/itsrobel/qs/internal/apperr"
)

// DefaultTimeout bounds a single step when the caller sets none.
const DefaultTimeout = 10 * time.Minute

// DefaultWorkers bounds a batch step when the caller sets none.
const DefaultWorkers = 4

// waitDelay is how long Wait keeps reading output after a timed-out child
// was killed, in case grandchildren still hold the pipe.
const waitDelay = 2 * time.Second

// Step is one planned command. Exactly one of Argv and Batch is set. Dir
// is relative to the project root.
type Step struct {
	Index             int
	Name              string
	Argv              []string
	Batch             [][]string
	Dir               string
	Env               map[string]string
	ContinueOnFailure bool
}

// Commands returns the argv lists the step runs.
func (s Step) Commands() [][]string {
	if len(s.Batch) > 0 {
		return s.Batch
	}
	return [][]string{s.Argv}
}

// String renders the step's commands for display.
func (s Step) String() string {
	cmds := s.Commands()
	parts := make([]string, len(cmds))
	for i, argv := range cmds {
		parts[i] = strings.Join(argv, " ")
	}
	return strings.Join(parts, " & ")
}

// StepResult is the captured outcome of one step.
type StepResult struct {
	Index    int
	Name     string
	Argv     []string
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Err      error
}

// Failed reports whether the step did not succeed.
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// RunResult holds every step that ran, in order. Steps that never started
// because of an earlier failure are absent.
type RunResult struct {
	Steps []StepResult
}

// Failures returns the failed steps, including ones allowed to fail.
func (r *RunResult) Failures() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Failed() {
			failed = append(failed, s)
		}
	}
	return failed
}

// Output concatenates the captured output of every step.
func (r *RunResult) Output() string {
	var b strings.Builder
	for _, s := range r.Steps {
		b.WriteString(s.Output)
	}
	return b.String()
}

// CommandError describes one failed command. ExitCode is -1 when the
// process never started or was killed.
type CommandError struct {
	Index    int
	Argv     []string
	ExitCode int
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	cmd := strings.Join(e.Argv, " ")
	switch {
	case e.TimedOut:
		return fmt.Sprintf("step %d (%s) timed out", e.Index, cmd)
	case e.ExitCode >= 0:
		return fmt.Sprintf("step %d (%s) exited with status %d", e.Index, cmd, e.ExitCode)
	default:
		return fmt.Sprintf("step %d (%s): %v", e.Index, cmd, e.Err)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes steps.
type Runner struct {
	// Timeout bounds each step. Zero means DefaultTimeout.
	Timeout time.Duration
	// Workers bounds the concurrent commands of a batch step. Zero means
	// DefaultWorkers.
	Workers int
	// Output, when set, receives every step's output as it is produced.
	Output io.Writer
	Logger *zerolog.Logger
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Run executes steps in order inside rootDir. The first failing step that
// is not allowed to fail stops the run; the returned result still holds
// everything captured up to and including that step, and the error is a
// Command error wrapping the step's *CommandError. Failures of steps marked
// ContinueOnFailure are recorded in the result only.
func (r *Runner) Run(ctx context.Context, steps []Step, rootDir string) (*RunResult, error) {
	log := r.logger()
	result := &RunResult{}

	for i, step := range steps {
		if step.Index == 0 {
			step.Index = i + 1
		}
		if err := ctx.Err(); err != nil {
			return result, apperr.New(apperr.Command, step.Name, err)
		}

		log.Info().Int("step", step.Index).Str("name", step.Name).Str("cmd", step.String()).Msg("running step")
		r.printf("[%d] %s\n", step.Index, step.String())

		sr := r.runStep(ctx, step, rootDir)
		result.Steps = append(result.Steps, sr)

		if sr.Err == nil {
			log.Debug().Int("step", step.Index).Dur("took", sr.Duration).Msg("step succeeded")
			continue
		}
		if step.ContinueOnFailure {
			log.Warn().Err(sr.Err).Int("step", step.Index).Msg("step failed, continuing")
			continue
		}
		log.Error().Err(sr.Err).Int("step", step.Index).Msg("step failed")
		return result, apperr.New(apperr.Command, step.Name, sr.Err)
	}
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, rootDir string) StepResult {
	start := time.Now()
	// A started step is only stopped by its own timeout; cancellation of
	// ctx takes effect between steps.
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout())
	defer cancel()

	dir := filepath.Join(rootDir, filepath.FromSlash(step.Dir))
	env := buildEnv(step.Env)

	sr := StepResult{Index: step.Index, Name: step.Name, Argv: step.Argv}
	if len(step.Batch) > 0 {
		sr.Argv = step.Batch[0]
		sr.Output, sr.Err = r.runBatch(stepCtx, step, dir, env)
	} else {
		sr.Output, sr.Err = r.runCommand(stepCtx, step.Index, step.Argv, dir, env, r.Output)
	}

	var ce *CommandError
	if errors.As(sr.Err, &ce) {
		sr.ExitCode = ce.ExitCode
		sr.TimedOut = ce.TimedOut
		sr.Argv = ce.Argv
	}
	sr.Duration = time.Since(start)
	return sr
}

// runBatch runs every command of a batch step concurrently and waits for
// all of them. Output is assembled in declaration order.
func (r *Runner) runBatch(ctx context.Context, step Step, dir string, env []string) (string, error) {
	outputs := make([]string, len(step.Batch))
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(r.workers())
	for i, argv := range step.Batch {
		g.Go(func() error {
			out, err := r.runCommand(ctx, step.Index, argv, dir, env, nil)
			mu.Lock()
			defer mu.Unlock()
			outputs[i] = out
			r.printf("%s", out)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return strings.Join(outputs, ""), errors.Join(errs...)
}

// runCommand runs argv and returns its combined output. A non-nil stream
// also receives the output live.
func (r *Runner) runCommand(ctx context.Context, index int, argv []string, dir string, env []string, stream io.Writer) (string, error) {
	if len(argv) == 0 {
		return "", &CommandError{Index: index, ExitCode: -1, Err: errors.New("empty command")}
	}

	name := argv[0]
	if strings.HasPrefix(name, "./") {
		name = filepath.Join(dir, filepath.FromSlash(name))
	}

	cmd := exec.CommandContext(ctx, name, argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	var buf bytes.Buffer
	var w io.Writer = &buf
	if stream != nil {
		w = io.MultiWriter(stream, &buf)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	if err == nil {
		return buf.String(), nil
	}

	ce := &CommandError{Index: index, Argv: argv, ExitCode: -1, Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ce.TimedOut = true
		return buf.String(), ce
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		ce.ExitCode = exitErr.ExitCode()
	}
	return buf.String(), ce
}

func (r *Runner) printf(format string, args ...any) {
	if r.Output != nil {
		fmt.Fprintf(r.Output, format, args...)
	}
}

// buildEnv returns a copy of the current environment with overlay applied.
// The parent process environment is never modified.
func buildEnv(overlay map[string]string) []string {
	env := os.Environ()
	for k, v := range overlay {
		env = setEnv(env, k, v)
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
