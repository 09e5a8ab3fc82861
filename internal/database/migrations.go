package database

import (
	"audit-worker/internal/database/versions/migration_0"
	"audit-worker/internal/database/versions/migration_1"
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "0",
			Migrate: migration_0.Migration,
		},
		{
			ID:       "1",
			Migrate:  migration_1.Migration,
			Rollback: migration_1.Rollback,
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Runs instead of the individual migrations on an empty database.
		log.Println("clean database detected, running full schema initialization")

		return txn.AutoMigrate(&Report{})
	})

	return migrator
}
