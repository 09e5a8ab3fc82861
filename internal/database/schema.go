package database

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

const (
	ReportPending   string = "pending"
	ReportCompleted string = "completed"
	ReportFailed    string = "failed"
)

type Report struct {
	Id   string `gorm:"primaryKey"`
	Type string `gorm:"size:20;not null"`

	FileURL  sql.NullString
	Metadata datatypes.JSON

	Status string `gorm:"size:20;not null;index"`
	Result datatypes.JSON

	CreationTime   time.Time
	CompletionTime sql.NullTime
}
