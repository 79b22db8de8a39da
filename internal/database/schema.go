package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunRunning   string = "RUNNING"
	RunSucceeded string = "SUCCEEDED"
	RunDegraded  string = "DEGRADED"
	RunFailed    string = "FAILED"
)

const (
	StepSucceeded string = "SUCCEEDED"
	StepFailed    string = "FAILED"
	StepSkipped   string = "SKIPPED"
)

type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Host           string
	Status         string `gorm:"size:20;not null;index"`
	ExitCode       int    `gorm:"not null;default:0"`
	Error          sql.NullString
	CreationTime   time.Time `gorm:"index"`
	CompletionTime sql.NullTime

	// Effective configuration the run was started with.
	Config datatypes.JSON `gorm:"type:jsonb"`

	Steps []Step `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

type Step struct {
	RunId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position int       `gorm:"primaryKey"`

	Name     string `gorm:"not null"`
	Policy   string `gorm:"size:20;not null"`
	Status   string `gorm:"size:20;not null"`
	Attempts int    `gorm:"not null;default:0"`
	Error    sql.NullString

	StartTime      sql.NullTime
	CompletionTime sql.NullTime
}
