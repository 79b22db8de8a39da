package bootstrap

import (
	"context"
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/internal/messaging"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder observes a run as it progresses. Recorder errors are logged and
// never change the outcome of the run.
type Recorder interface {
	RunStarted(ctx context.Context, runID uuid.UUID) error
	StepFinished(ctx context.Context, runID uuid.UUID, result StepResult) error
	RunFinished(ctx context.Context, report Report) error
}

type NopRecorder struct{}

func (NopRecorder) RunStarted(context.Context, uuid.UUID) error { return nil }

func (NopRecorder) StepFinished(context.Context, uuid.UUID, StepResult) error { return nil }

func (NopRecorder) RunFinished(context.Context, Report) error { return nil }

type MultiRecorder []Recorder

func (m MultiRecorder) RunStarted(ctx context.Context, runID uuid.UUID) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RunStarted(ctx, runID))
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) StepFinished(ctx context.Context, runID uuid.UUID, result StepResult) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.StepFinished(ctx, runID, result))
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) RunFinished(ctx context.Context, report Report) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RunFinished(ctx, report))
	}
	return errors.Join(errs...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// LedgerRecorder persists runs and their steps to the ledger database.
type LedgerRecorder struct {
	db     *gorm.DB
	host   string
	config any
}

func NewLedgerRecorder(db *gorm.DB, host string, config any) *LedgerRecorder {
	return &LedgerRecorder{db: db, host: host, config: config}
}

func (l *LedgerRecorder) RunStarted(ctx context.Context, runID uuid.UUID) error {
	return database.CreateRun(ctx, l.db, runID, l.host, l.config)
}

func (l *LedgerRecorder) StepFinished(ctx context.Context, runID uuid.UUID, result StepResult) error {
	return database.SaveStep(ctx, l.db, runID, database.StepRecord{
		Position: result.Position,
		Name:     result.Name,
		Policy:   string(result.Policy),
		Status:   string(result.Status),
		Attempts: result.Attempts,
		Error:    errString(result.Err),
		Started:  result.Started,
		Finished: result.Finished,
	})
}

func (l *LedgerRecorder) RunFinished(ctx context.Context, report Report) error {
	return database.FinishRun(ctx, l.db, report.RunID, string(report.Status), report.ExitCode(), errString(report.Err))
}

// EventRecorder publishes lifecycle events for the orchestrator.
type EventRecorder struct {
	publisher messaging.Publisher
	host      string
}

func NewEventRecorder(publisher messaging.Publisher, host string) *EventRecorder {
	return &EventRecorder{publisher: publisher, host: host}
}

func (e *EventRecorder) RunStarted(ctx context.Context, runID uuid.UUID) error {
	return e.publish(ctx, messaging.BootstrapEvent{
		RunId:  runID,
		Type:   messaging.EventStarted,
		Status: database.RunRunning,
	})
}

func (e *EventRecorder) StepFinished(ctx context.Context, runID uuid.UUID, result StepResult) error {
	return e.publish(ctx, messaging.BootstrapEvent{
		RunId:   runID,
		Type:    messaging.EventStepFinished,
		Status:  string(result.Status),
		Step:    result.Name,
		Message: errString(result.Err),
	})
}

func (e *EventRecorder) RunFinished(ctx context.Context, report Report) error {
	return e.publish(ctx, messaging.BootstrapEvent{
		RunId:   report.RunID,
		Type:    messaging.EventFinished,
		Status:  string(report.Status),
		Message: errString(report.Err),
	})
}

func (e *EventRecorder) publish(ctx context.Context, event messaging.BootstrapEvent) error {
	event.Host = e.host
	event.Timestamp = time.Now().UTC()
	if err := e.publisher.PublishBootstrapEvent(ctx, event); err != nil {
		return fmt.Errorf("error publishing %s event: %w", event.Type, err)
	}
	return nil
}
