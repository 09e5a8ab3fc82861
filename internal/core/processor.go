package core

import (
	"audit-worker/internal/core/types"
	"audit-worker/internal/core/utils"
	"audit-worker/internal/reportstore"
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	failureSummary      = "worker failed"
	failurePatchTimeout = 30 * time.Second
)

// ReportProcessor runs one report through its pipeline and records the
// outcome in the report store.
type ReportProcessor struct {
	store    reportstore.Store
	deepfake *DeepfakePipeline
	audit    *AuditPipeline
	retry    utils.RetryPolicy
	workDir  string
}

func NewReportProcessor(store reportstore.Store, deepfake *DeepfakePipeline, audit *AuditPipeline, retry utils.RetryPolicy, workDir string) *ReportProcessor {
	return &ReportProcessor{
		store:    store,
		deepfake: deepfake,
		audit:    audit,
		retry:    retry,
		workDir:  workDir,
	}
}

// ProcessReport fetches the report, runs the pipeline for its type and patches
// the report to completed. Reports that are already completed or failed are
// left untouched. On any error the report is patched to failed once, without
// retrying, and the error is returned.
//
// There is no lock against a concurrent run on the same report: both runs see
// it pending and both write their outcome.
func (p *ReportProcessor) ProcessReport(ctx context.Context, id string) error {
	rc := NewRunContext(id, p.workDir, time.Now())
	defer rc.Cleanup()

	slog.Info("processing report", "report_id", id, "run_id", rc.RunId)

	report, err := utils.Retry(ctx, p.retry, func() (reportstore.Report, error) {
		report, err := p.store.GetReport(ctx, id)
		if err != nil && !reportstore.IsRetryable(err) {
			return report, utils.Permanent(err)
		}
		return report, err
	})
	if err != nil {
		err = fmt.Errorf("error fetching report %s: %w", id, err)
		p.markFailed(ctx, id, err)
		return err
	}

	if report.Terminal() {
		slog.Info("report already processed, skipping", "report_id", id, "status", report.Status)
		return nil
	}

	result, err := p.runPipeline(ctx, rc, report)
	if err != nil {
		err = fmt.Errorf("error processing %s report %s: %w", report.Type, id, err)
		p.markFailed(ctx, id, err)
		return err
	}

	_, err = utils.Retry(ctx, p.retry, func() (reportstore.Report, error) {
		updated, err := p.store.PatchReport(ctx, id, result, reportstore.StatusCompleted)
		if err != nil && !reportstore.IsRetryable(err) {
			return updated, utils.Permanent(err)
		}
		return updated, err
	})
	if err != nil {
		err = fmt.Errorf("error saving result of report %s: %w", id, err)
		p.markFailed(ctx, id, err)
		return err
	}

	slog.Info("report completed", "report_id", id, "run_id", rc.RunId, "type", report.Type, "duration", time.Since(rc.Started))

	return nil
}

func (p *ReportProcessor) runPipeline(ctx context.Context, rc *RunContext, report reportstore.Report) (any, error) {
	switch report.Type {
	case reportstore.TypeDeepfake:
		return p.deepfake.Run(ctx, rc, report)
	case reportstore.TypeAudit:
		return p.audit.Run(ctx, rc, report)
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownReportType, report.Type)
	}
}

// markFailed makes a single attempt to record the failure. It runs even if ctx
// was cancelled, and its own error is only logged.
func (p *ReportProcessor) markFailed(ctx context.Context, id string, cause error) {
	slog.Error("report processing failed", "report_id", id, "error", cause)

	patchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failurePatchTimeout)
	defer cancel()

	result := types.FailureResult{Summary: failureSummary, Notes: cause.Error()}
	if _, err := p.store.PatchReport(patchCtx, id, result, reportstore.StatusFailed); err != nil {
		slog.Error("error marking report as failed", "report_id", id, "error", err)
	}
}
