package versions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Host           string
	Status         string `gorm:"size:20;not null;index"`
	Error          sql.NullString
	CreationTime   time.Time `gorm:"index"`
	CompletionTime sql.NullTime

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

func Migration0(db *gorm.DB) error {
	if err := db.AutoMigrate(&Run{}, &Step{}); err != nil {
		return fmt.Errorf("error creating ledger tables: %w", err)
	}
	return nil
}
