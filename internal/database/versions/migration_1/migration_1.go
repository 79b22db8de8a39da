package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type Run struct {
	ExitCode int `gorm:"not null;default:0"`
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&Run{}, "ExitCode"); err != nil {
		return fmt.Errorf("error adding ExitCode column: %w", err)
	}

	if err := db.Model(&Run{}).
		Where("status = ?", "FAILED").
		Update("exit_code", 1).Error; err != nil {
		return fmt.Errorf("error backfilling exit_code for failed runs: %w", err)
	}

	if err := db.Model(&Run{}).
		Where("status = ?", "DEGRADED").
		Update("exit_code", 2).Error; err != nil {
		return fmt.Errorf("error backfilling exit_code for degraded runs: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&Run{}, "ExitCode"); err != nil {
		return fmt.Errorf("error dropping ExitCode column: %w", err)
	}

	return nil
}
