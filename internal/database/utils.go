package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrReportNotFound = errors.New("report not found")

func IsTerminalStatus(status string) bool {
	return status == ReportCompleted || status == ReportFailed
}

func CreateReport(ctx context.Context, db *gorm.DB, report *Report) error {
	if report.Status == "" {
		report.Status = ReportPending
	}
	if report.CreationTime.IsZero() {
		report.CreationTime = time.Now().UTC()
	}

	if err := db.WithContext(ctx).Create(report).Error; err != nil {
		slog.Error("error creating report", "report_id", report.Id, "error", err)
		return fmt.Errorf("error creating report: %w", err)
	}
	return nil
}

func GetReport(ctx context.Context, db *gorm.DB, id string) (Report, error) {
	var report Report
	if err := db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return Report{}, fmt.Errorf("error getting report %s: %w", id, err)
	}
	return report, nil
}

// UpdateReportResult stores result and, if status is not empty, moves the
// report to status. The updated report is returned.
func UpdateReportResult(ctx context.Context, db *gorm.DB, id string, result []byte, status string) (Report, error) {
	var report Report

	err := db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.First(&report, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrReportNotFound, id)
			}
			return fmt.Errorf("error getting report %s: %w", id, err)
		}

		updates := map[string]any{"result": datatypes.JSON(result)}
		if status != "" {
			updates["status"] = status
			if IsTerminalStatus(status) {
				updates["completion_time"] = sql.NullTime{Time: time.Now().UTC(), Valid: true}
			}
		}

		if err := txn.Model(&report).Updates(updates).Error; err != nil {
			return fmt.Errorf("error updating report %s: %w", id, err)
		}

		return txn.First(&report, "id = ?", id).Error
	})
	if err != nil {
		slog.Error("error updating report result", "report_id", id, "status", status, "error", err)
		return Report{}, err
	}

	return report, nil
}

// ListReports returns the reports in the given status, oldest first.
func ListReports(ctx context.Context, db *gorm.DB, status string) ([]Report, error) {
	var reports []Report
	if err := db.WithContext(ctx).Where("status = ?", status).Order("creation_time ASC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("error listing %s reports: %w", status, err)
	}
	return reports, nil
}
