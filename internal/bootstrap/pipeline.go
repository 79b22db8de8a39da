package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrStepFailed wraps the error of the fatal step that stopped a run.
var ErrStepFailed = errors.New("bootstrap step failed")

type Policy string

const (
	// Fatal steps stop the run when they fail.
	Fatal Policy = "FATAL"
	// Tolerable step failures are recorded and the run continues degraded.
	Tolerable Policy = "TOLERABLE"
)

type StepStatus string

const (
	StepSucceeded StepStatus = "SUCCEEDED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCEEDED"
	RunDegraded  RunStatus = "DEGRADED"
	RunFailed    RunStatus = "FAILED"
)

// StepFunc performs a step and reports how many attempts it took.
type StepFunc func(ctx context.Context) (int, error)

type Step struct {
	Name   string
	Policy Policy
	Run    StepFunc
}

// Once adapts a single-attempt operation into a StepFunc.
func Once(fn func(ctx context.Context) error) StepFunc {
	return func(ctx context.Context) (int, error) {
		return 1, fn(ctx)
	}
}

type StepResult struct {
	Position int
	Name     string
	Policy   Policy
	Status   StepStatus
	Attempts int
	Err      error
	Started  time.Time
	Finished time.Time
}

func (r StepResult) Duration() time.Duration {
	if r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

type Report struct {
	RunID    uuid.UUID
	Status   RunStatus
	Steps    []StepResult
	Err      error
	Started  time.Time
	Finished time.Time
}

// ExitCode maps the run status to the process exit code.
func (r Report) ExitCode() int {
	switch r.Status {
	case RunSucceeded:
		return 0
	case RunDegraded:
		return 2
	default:
		return 1
	}
}

func (r Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

type Pipeline struct {
	steps    []Step
	recorder Recorder
}

func NewPipeline(recorder Recorder, steps ...Step) *Pipeline {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Pipeline{steps: steps, recorder: recorder}
}

// Run executes the steps in order. A failed fatal step, or a cancelled
// context, marks every remaining step as skipped.
func (p *Pipeline) Run(ctx context.Context) Report {
	report := Report{RunID: uuid.New(), Status: RunSucceeded, Started: time.Now()}
	logger := slog.With("run_id", report.RunID)

	logger.Info("bootstrap run started", "steps", len(p.steps))
	if err := p.recorder.RunStarted(context.WithoutCancel(ctx), report.RunID); err != nil {
		logger.Warn("error recording run start", "error", err)
	}

	aborted := false
	for i, step := range p.steps {
		result := StepResult{Position: i + 1, Name: step.Name, Policy: step.Policy}

		if !aborted && ctx.Err() != nil {
			aborted = true
			report.Status = RunFailed
			report.Err = fmt.Errorf("%w: %s: %w", ErrStepFailed, step.Name, ctx.Err())
			logger.Error("bootstrap run cancelled", "step", step.Name, "error", ctx.Err())
		}

		if aborted {
			result.Status = StepSkipped
			report.Steps = append(report.Steps, result)
			p.recordStep(ctx, logger, report.RunID, result)
			continue
		}

		logger.Info("starting step", "step", step.Name, "policy", step.Policy)
		result.Started = time.Now()
		attempts, err := step.Run(ctx)
		result.Finished = time.Now()
		result.Attempts = attempts
		result.Err = err

		switch {
		case err == nil:
			result.Status = StepSucceeded
			logger.Info("step succeeded", "step", step.Name, "attempts", attempts, "duration", result.Duration())
		case step.Policy == Tolerable:
			result.Status = StepFailed
			if report.Status == RunSucceeded {
				report.Status = RunDegraded
			}
			logger.Warn("tolerable step failed, continuing", "step", step.Name, "attempts", attempts, "error", err)
		default:
			result.Status = StepFailed
			aborted = true
			report.Status = RunFailed
			report.Err = fmt.Errorf("%w: %s: %w", ErrStepFailed, step.Name, err)
			logger.Error("fatal step failed, aborting run", "step", step.Name, "attempts", attempts, "error", err)
		}

		report.Steps = append(report.Steps, result)
		p.recordStep(ctx, logger, report.RunID, result)
	}

	report.Finished = time.Now()

	logger.Info("bootstrap run finished", "status", report.Status, "exit_code", report.ExitCode(), "duration", report.Finished.Sub(report.Started))
	for _, s := range report.Steps {
		attrs := []any{"position", s.Position, "step", s.Name, "policy", s.Policy, "status", s.Status, "attempts", s.Attempts, "duration", s.Duration()}
		if s.Err != nil {
			attrs = append(attrs, "error", s.Err)
		}
		logger.Info("step summary", attrs...)
	}

	// The ledger and broker should still hear about a cancelled run.
	if err := p.recorder.RunFinished(context.WithoutCancel(ctx), report); err != nil {
		logger.Warn("error recording run result", "error", err)
	}

	return report
}

func (p *Pipeline) recordStep(ctx context.Context, logger *slog.Logger, runID uuid.UUID, result StepResult) {
	if err := p.recorder.StepFinished(context.WithoutCancel(ctx), runID, result); err != nil {
		logger.Warn("error recording step result", "step", result.Name, "error", err)
	}
}
