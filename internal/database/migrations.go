package database

import (
	"log/slog"

	"dashboard-bootstrap/internal/database/versions"
	"dashboard-bootstrap/internal/database/versions/migration_1"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations lists every schema version in order. A ledger created before a
// version existed is brought forward by replaying the versions it is missing.
func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID:      "0",
			Migrate: versions.Migration0,
		},
		{
			ID:       "1",
			Migrate:  migration_1.Migration,
			Rollback: migration_1.Rollback,
		},
	}
}

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Runs when no previous migration is recorded, creating the latest
		// schema directly instead of replaying every migration.
		slog.Info("clean ledger database detected, running full schema initialization")

		dbType := txn.Dialector.Name()
		if dbType == "sqlite" || dbType == "sqlite3" {
			if err := txn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				slog.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		return txn.AutoMigrate(&Run{}, &Step{})
	})

	return migrator
}
