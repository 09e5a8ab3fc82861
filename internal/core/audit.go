package core

import (
	"audit-worker/internal/core/types"
	"audit-worker/internal/core/utils"
	"audit-worker/internal/reportstore"
	"audit-worker/internal/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

const maxFallbackSummaryLength = 1000

type AuditPipeline struct {
	inference InferenceClient
	storage   storage.ObjectStore
	retry     utils.RetryPolicy
}

func NewAuditPipeline(inference InferenceClient, storage storage.ObjectStore, retry utils.RetryPolicy) *AuditPipeline {
	return &AuditPipeline{inference: inference, storage: storage, retry: retry}
}

func (p *AuditPipeline) Run(ctx context.Context, rc *RunContext, report reportstore.Report) (*types.AuditResult, error) {
	prompt, err := renderPrompt(prompts.audit, auditPromptData{ReportId: report.Id, Metadata: report.Metadata})
	if err != nil {
		return nil, err
	}

	raw, err := p.inference.TextInference(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("audit inference failed: %w", err)
	}

	result, err := utils.FirstSuccessOr(ctx,
		func() types.AuditResult { return defaultAuditResult(raw) },
		utils.Strategy[types.AuditResult]{
			Name: "parse-model-json",
			Attempt: func(ctx context.Context) (types.AuditResult, error) {
				return parseAuditResult(raw)
			},
		},
	)
	if err != nil {
		return nil, err
	}

	dir, err := rc.TempDir("audit")
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("audit/%s/%s/raw_output.txt", report.Id, rc.RunId)
	uri, err := uploadArtifact(ctx, p.storage, p.retry, dir, "raw_output.txt", key, []byte(raw))
	if err != nil {
		return nil, err
	}
	result.Artifacts = map[string]string{"raw_output": uri}

	slog.Info("audit complete", "report_id", report.Id, "run_id", rc.RunId)

	return &result, nil
}

func defaultAuditScores() types.AuditScores {
	return types.AuditScores{Transparency: 60, Fairness: 50, Privacy: 60, Robustness: 55}
}

func fallbackSummary(raw string) string {
	summary := strings.TrimSpace(utils.Truncate(raw, maxFallbackSummaryLength))
	if summary == "" {
		return "The audit model returned no content."
	}
	return summary
}

func defaultAuditResult(raw string) types.AuditResult {
	return types.AuditResult{
		Summary:         fallbackSummary(raw),
		Type:            types.ResultTypeAudit,
		Scores:          defaultAuditScores(),
		Metrics:         map[string]any{},
		FlaggedIssues:   []any{},
		Recommendations: []any{},
	}
}

// parseAuditResult reads the model's JSON answer field by field. Missing or
// mistyped fields keep their defaults.
func parseAuditResult(raw string) (types.AuditResult, error) {
	doc, ok := utils.ExtractJSONObject(raw)
	if !ok {
		return types.AuditResult{}, utils.TryNext(fmt.Errorf("audit output is not a JSON object"))
	}

	result := defaultAuditResult(raw)

	if summary := doc.Get("summary"); summary.Type == gjson.String && strings.TrimSpace(summary.String()) != "" {
		result.Summary = summary.String()
	}

	scores := doc.Get("scores")
	for field, dest := range map[string]*float64{
		"transparency": &result.Scores.Transparency,
		"fairness":     &result.Scores.Fairness,
		"privacy":      &result.Scores.Privacy,
		"robustness":   &result.Scores.Robustness,
	} {
		if v, ok := utils.Number(scores.Get(field)); ok {
			*dest = min(100, max(0, v))
		}
	}

	if metrics, ok := doc.Get("metrics").Value().(map[string]any); ok {
		result.Metrics = metrics
	}
	if issues, ok := doc.Get("flagged_issues").Value().([]any); ok {
		result.FlaggedIssues = issues
	}
	if recs, ok := doc.Get("recommendations").Value().([]any); ok {
		result.Recommendations = recs
	}

	return result, nil
}
