package bootstrap_test

import (
	"context"
	"dashboard-bootstrap/internal/bootstrap"
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/internal/messaging"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsRecordedInLedgerAndEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "app.py", appSource)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	queue := messaging.NewInMemoryQueue()

	recorder := bootstrap.MultiRecorder{
		bootstrap.NewLedgerRecorder(db, "ip-10-0-1-5", f.cfg.Redacted()),
		bootstrap.NewEventRecorder(queue, "ip-10-0-1-5"),
	}

	report := f.provisioner().Run(context.Background(), recorder)
	require.Equal(t, bootstrap.RunDegraded, report.Status)

	run, err := database.GetRun(context.Background(), db, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, database.RunDegraded, run.Status)
	assert.Equal(t, 2, run.ExitCode)
	assert.Equal(t, "ip-10-0-1-5", run.Host)
	assert.Contains(t, string(run.Config), `"S3Bucket":"student-performance-app-files"`)

	require.Len(t, run.Steps, 9)
	for i, step := range run.Steps {
		assert.Equal(t, report.Steps[i].Name, step.Name)
		assert.Equal(t, string(report.Steps[i].Status), step.Status)
	}
	assert.Equal(t, database.StepSucceeded, run.Steps[2].Status)
	assert.Equal(t, bootstrap.ArtifactStep("dataset"), run.Steps[3].Name)
	assert.Equal(t, database.StepFailed, run.Steps[3].Status)
	assert.Equal(t, string(bootstrap.Tolerable), run.Steps[3].Policy)
	assert.Contains(t, run.Steps[3].Error.String, "artifact fetch exhausted")

	events, err := queue.Events()
	require.NoError(t, err)
	require.Len(t, events, 11)
	assert.Equal(t, messaging.EventStarted, events[0].Type)
	assert.Equal(t, messaging.EventFinished, events[10].Type)
	assert.Equal(t, string(bootstrap.RunDegraded), events[10].Status)
	for _, e := range events {
		assert.Equal(t, report.RunID, e.RunId)
		assert.Equal(t, "ip-10-0-1-5", e.Host)
	}
	assert.Equal(t, bootstrap.ArtifactStep("dataset"), events[4].Step)
	assert.Equal(t, string(bootstrap.StepFailed), events[4].Status)
}

type failingRecorder struct{}

func (failingRecorder) RunStarted(context.Context, uuid.UUID) error {
	return errors.New("broker down")
}

func (failingRecorder) StepFinished(context.Context, uuid.UUID, bootstrap.StepResult) error {
	return errors.New("broker down")
}

func (failingRecorder) RunFinished(context.Context, bootstrap.Report) error {
	return errors.New("broker down")
}

func TestRecorderErrorsDoNotAffectRun(t *testing.T) {
	f := newFixture(t, nil)
	f.publishAll(t)

	report := f.provisioner().Run(context.Background(), failingRecorder{})
	assert.Equal(t, bootstrap.RunSucceeded, report.Status)
}

func TestPipelinePolicies(t *testing.T) {
	calls := []string{}
	step := func(name string, policy bootstrap.Policy, err error) bootstrap.Step {
		return bootstrap.Step{Name: name, Policy: policy, Run: bootstrap.Once(func(context.Context) error {
			calls = append(calls, name)
			return err
		})}
	}

	report := bootstrap.NewPipeline(nil,
		step("a", bootstrap.Fatal, nil),
		step("b", bootstrap.Tolerable, errors.New("flaky")),
		step("c", bootstrap.Fatal, nil),
	).Run(context.Background())
	assert.Equal(t, bootstrap.RunDegraded, report.Status)
	assert.Equal(t, []string{"a", "b", "c"}, calls)

	calls = nil
	report = bootstrap.NewPipeline(nil,
		step("a", bootstrap.Tolerable, errors.New("flaky")),
		step("b", bootstrap.Fatal, errors.New("broken")),
		step("c", bootstrap.Tolerable, nil),
	).Run(context.Background())
	assert.Equal(t, bootstrap.RunFailed, report.Status)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.ErrorIs(t, report.Err, bootstrap.ErrStepFailed)
	assert.ErrorContains(t, report.Err, "broken")
	assert.Equal(t, bootstrap.StepSkipped, report.Steps[2].Status)
	assert.Equal(t, 3, report.Steps[2].Position)
}
