package migration_0

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Report struct {
	Id   string `gorm:"primaryKey"`
	Type string `gorm:"size:20;not null"`

	FileURL  sql.NullString
	Metadata datatypes.JSON

	Status string `gorm:"size:20;not null"`
	Result datatypes.JSON

	CreationTime time.Time
}

func Migration(db *gorm.DB) error {
	return db.AutoMigrate(&Report{})
}
