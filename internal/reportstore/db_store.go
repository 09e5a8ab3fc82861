package reportstore

import (
	"audit-worker/internal/database"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DBStore keeps reports in a local database. Used when the worker runs
// without the report API.
type DBStore struct {
	db *gorm.DB
}

var _ Store = (*DBStore)(nil)

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) GetReport(ctx context.Context, id string) (Report, error) {
	record, err := database.GetReport(ctx, s.db, id)
	if err != nil {
		return Report{}, translateDBError(err, id)
	}
	return fromRecord(record)
}

// PatchReport replaces the result. A status outside the known set is ignored
// and the stored status is kept.
func (s *DBStore) PatchReport(ctx context.Context, id string, result any, status string) (Report, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Report{}, fmt.Errorf("error encoding result for report %s: %w", id, err)
	}

	if !ValidStatus(status) {
		slog.Warn("ignoring invalid report status", "report_id", id, "status", status)
		status = ""
	}

	record, err := database.UpdateReportResult(ctx, s.db, id, data, status)
	if err != nil {
		return Report{}, translateDBError(err, id)
	}
	return fromRecord(record)
}

// Create stores a new pending report and returns it. An empty id is replaced
// with a random one.
func (s *DBStore) Create(ctx context.Context, report Report) (Report, error) {
	if report.Id == "" {
		report.Id = uuid.New().String()
	}
	if report.Type != TypeAudit && report.Type != TypeDeepfake {
		return Report{}, fmt.Errorf("invalid report type '%s'", report.Type)
	}

	var metadata datatypes.JSON
	if report.Metadata != nil {
		data, err := json.Marshal(report.Metadata)
		if err != nil {
			return Report{}, fmt.Errorf("error encoding metadata: %w", err)
		}
		metadata = datatypes.JSON(data)
	}

	record := database.Report{
		Id:       report.Id,
		Type:     report.Type,
		FileURL:  sql.NullString{String: report.FileURL, Valid: report.FileURL != ""},
		Metadata: metadata,
		Status:   StatusPending,
	}
	if err := database.CreateReport(ctx, s.db, &record); err != nil {
		return Report{}, err
	}

	return fromRecord(record)
}

// Pending lists the ids of reports still waiting for a worker.
func (s *DBStore) Pending(ctx context.Context) ([]string, error) {
	records, err := database.ListReports(ctx, s.db, StatusPending)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Id)
	}
	return ids, nil
}

func translateDBError(err error, id string) error {
	if errors.Is(err, database.ErrReportNotFound) {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return err
}

func fromRecord(record database.Report) (Report, error) {
	report := Report{
		Id:      record.Id,
		Type:    record.Type,
		FileURL: record.FileURL.String,
		Status:  record.Status,
	}

	if len(record.Metadata) > 0 {
		if err := json.Unmarshal(record.Metadata, &report.Metadata); err != nil {
			return Report{}, fmt.Errorf("error decoding metadata of report %s: %w", record.Id, err)
		}
	}
	if len(record.Result) > 0 {
		report.Result = json.RawMessage(record.Result)
	}

	return report, nil
}
