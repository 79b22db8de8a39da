package api

import (
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/pkg/api"
	"database/sql"
	"encoding/json"
	"time"
)

func optionalTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func convertStep(s database.Step) api.Step {
	return api.Step{
		Position:       s.Position,
		Name:           s.Name,
		Policy:         s.Policy,
		Status:         s.Status,
		Attempts:       s.Attempts,
		Error:          s.Error.String,
		StartTime:      optionalTime(s.StartTime),
		CompletionTime: optionalTime(s.CompletionTime),
	}
}

func convertRun(r database.Run) api.Run {
	run := api.Run{
		Id:             r.Id,
		Host:           r.Host,
		Status:         r.Status,
		ExitCode:       r.ExitCode,
		Error:          r.Error.String,
		CreationTime:   r.CreationTime,
		CompletionTime: optionalTime(r.CompletionTime),
	}
	if len(r.Config) > 0 && json.Valid(r.Config) {
		run.Config = json.RawMessage(r.Config)
	}
	for _, s := range r.Steps {
		run.Steps = append(run.Steps, convertStep(s))
	}
	return run
}

func convertRuns(rs []database.Run) []api.Run {
	runs := make([]api.Run, 0, len(rs))
	for _, r := range rs {
		runs = append(runs, convertRun(r))
	}
	return runs
}
