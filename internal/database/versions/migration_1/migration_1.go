package migration_1

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Report struct {
	Status         string `gorm:"size:20;not null;index"`
	CompletionTime sql.NullTime
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&Report{}, "CompletionTime"); err != nil {
		return fmt.Errorf("error adding CompletionTime column: %w", err)
	}

	// Reports finished before this migration get the migration time.
	if err := db.Model(&Report{}).
		Where("status IN ? AND completion_time IS NULL", []string{"completed", "failed"}).
		Update("completion_time", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("error backfilling CompletionTime: %w", err)
	}

	if err := db.Migrator().CreateIndex(&Report{}, "Status"); err != nil {
		return fmt.Errorf("error creating status index: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropIndex(&Report{}, "Status"); err != nil {
		return fmt.Errorf("error dropping status index: %w", err)
	}

	if err := db.Migrator().DropColumn(&Report{}, "CompletionTime"); err != nil {
		return fmt.Errorf("error dropping CompletionTime column: %w", err)
	}

	return nil
}
