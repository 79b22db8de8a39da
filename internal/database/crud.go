package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func CreateRun(ctx context.Context, db *gorm.DB, runId uuid.UUID, host string, config any) error {
	snapshot, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config snapshot: %w", err)
	}

	run := Run{
		Id:           runId,
		Host:         host,
		Status:       RunRunning,
		CreationTime: time.Now().UTC(),
		Config:       snapshot,
	}

	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Error("error creating run record", "run_id", runId, "error", err)
		return fmt.Errorf("error creating run record: %w", err)
	}
	return nil
}

type StepRecord struct {
	Position int
	Name     string
	Policy   string
	Status   string
	Attempts int
	Error    string
	Started  time.Time
	Finished time.Time
}

func SaveStep(ctx context.Context, db *gorm.DB, runId uuid.UUID, rec StepRecord) error {
	step := Step{
		RunId:          runId,
		Position:       rec.Position,
		Name:           rec.Name,
		Policy:         rec.Policy,
		Status:         rec.Status,
		Attempts:       rec.Attempts,
		Error:          nullString(rec.Error),
		StartTime:      nullTime(rec.Started),
		CompletionTime: nullTime(rec.Finished),
	}

	if err := db.WithContext(ctx).Save(&step).Error; err != nil {
		slog.Error("error saving step record", "run_id", runId, "step", rec.Name, "error", err)
		return fmt.Errorf("error saving step record: %w", err)
	}
	return nil
}

func FinishRun(ctx context.Context, db *gorm.DB, runId uuid.UUID, status string, exitCode int, runErr string) error {
	updates := map[string]any{
		"status":          status,
		"exit_code":       exitCode,
		"error":           nullString(runErr),
		"completion_time": time.Now().UTC(),
	}

	if err := db.WithContext(ctx).Model(&Run{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run status", "run_id", runId, "status", status, "error", err)
		return fmt.Errorf("error updating run status: %w", err)
	}
	return nil
}

func GetRun(ctx context.Context, db *gorm.DB, runId uuid.UUID) (Run, error) {
	var run Run
	err := db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", runId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("error loading run: %w", err)
	}
	return run, nil
}

func LatestRun(ctx context.Context, db *gorm.DB) (Run, error) {
	var run Run
	err := db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("creation_time DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("error loading latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. An empty status matches every
// run.
func ListRuns(ctx context.Context, db *gorm.DB, status string, limit int) ([]Run, error) {
	query := db.WithContext(ctx).Order("creation_time DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	return runs, nil
}
