package core

import (
	"audit-worker/internal/core/types"
	"audit-worker/internal/core/utils"
	"audit-worker/internal/reportstore"
	"audit-worker/internal/storage"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

const maxRepresentativeFrames = 3

type DeepfakeConfig struct {
	FramesPerSecond float64
	MaxFrames       int
}

type DeepfakePipeline struct {
	extractor FrameExtractor
	inference InferenceClient
	storage   storage.ObjectStore
	retry     utils.RetryPolicy
	cfg       DeepfakeConfig
}

func NewDeepfakePipeline(extractor FrameExtractor, inference InferenceClient, storage storage.ObjectStore, retry utils.RetryPolicy, cfg DeepfakeConfig) *DeepfakePipeline {
	if cfg.FramesPerSecond <= 0 {
		cfg.FramesPerSecond = 1
	}
	return &DeepfakePipeline{extractor: extractor, inference: inference, storage: storage, retry: retry, cfg: cfg}
}

type diagnosticBundle struct {
	ReportId     string                 `json:"report_id"`
	RunId        string                 `json:"run_id"`
	Frames       []types.FrameResult    `json:"frames"`
	Aggregate    types.AggregateVerdict `json:"aggregate"`
	ModelOutput  string                 `json:"model_output"`
	ParsedReport *types.DeepfakeReport  `json:"parsed_report"`
}

func (p *DeepfakePipeline) Run(ctx context.Context, rc *RunContext, report reportstore.Report) (*types.DeepfakeResult, error) {
	if report.FileURL == "" {
		return nil, ErrMissingFileURL
	}

	workDir, err := rc.TempDir("deepfake")
	if err != nil {
		return nil, err
	}

	videoPath, err := download(ctx, p.storage, p.retry, report.FileURL, workDir)
	if err != nil {
		return nil, err
	}

	frames, err := p.extractor.ExtractFrames(ctx, videoPath, filepath.Join(workDir, "frames"), p.cfg.FramesPerSecond)
	if err != nil {
		return nil, err
	}

	sample := frames
	if p.cfg.MaxFrames > 0 && len(sample) > p.cfg.MaxFrames {
		sample = sample[:p.cfg.MaxFrames]
	}

	results, classified, err := p.classifyFrames(ctx, sample)
	if err != nil {
		return nil, err
	}

	agg := Aggregate(results)
	if agg.Voted == 0 {
		return nil, fmt.Errorf("%w: %d frames failed", ErrNoFramesClassified, agg.Errored)
	}

	stats := types.RunStats{
		Frames:     len(frames),
		Classified: agg.Voted,
		FakeVotes:  agg.FakeVotes,
		Errored:    agg.Errored,
		Ratio:      agg.Ratio,
	}

	slog.Info("frames aggregated", "report_id", report.Id, "verdict", agg.Verdict, "ratio", agg.Ratio, "voted", agg.Voted, "errored", agg.Errored)

	prompt, err := renderPrompt(prompts.deepfake, deepfakePromptData{
		Metadata:   report.Metadata,
		Verdict:    agg.Verdict,
		Confidence: agg.Confidence,
		Stats:      stats,
		Frames:     frameSummaries(results),
	})
	if err != nil {
		return nil, err
	}

	var modelOutput string
	parsed, err := utils.FirstSuccessOr(ctx,
		func() types.DeepfakeReport { return synthesizeDeepfakeReport(agg) },
		utils.Strategy[types.DeepfakeReport]{
			Name: "model-report",
			Attempt: func(ctx context.Context) (types.DeepfakeReport, error) {
				out, err := p.inference.ReportInference(ctx, prompt, representativeFrames(classified, maxRepresentativeFrames))
				if err != nil {
					return types.DeepfakeReport{}, utils.TryNext(err)
				}
				modelOutput = out
				return parseDeepfakeReport(out)
			},
		},
	)
	if err != nil {
		return nil, err
	}

	bundle, err := json.MarshalIndent(diagnosticBundle{
		ReportId:     report.Id,
		RunId:        rc.RunId,
		Frames:       results,
		Aggregate:    agg,
		ModelOutput:  modelOutput,
		ParsedReport: &parsed,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding diagnostic bundle: %w", err)
	}

	key := fmt.Sprintf("deepfake/%s/%s/diagnostic.json", report.Id, rc.RunId)
	uri, err := uploadArtifact(ctx, p.storage, p.retry, workDir, "diagnostic.json", key, bundle)
	if err != nil {
		return nil, err
	}

	result := mergeDeepfakeResult(agg, results, parsed)
	result.Artifacts = map[string]string{"diagnostic": uri}
	result.Stats = stats

	slog.Info("deepfake scan complete", "report_id", report.Id, "run_id", rc.RunId, "verdict", result.Verdict, "confidence", result.Confidence)

	return result, nil
}

// classifyFrames classifies frames one at a time in order. A frame that cannot
// be classified is kept with an error marker. The paths of the successfully
// classified frames are returned alongside.
func (p *DeepfakePipeline) classifyFrames(ctx context.Context, frames []string) ([]types.FrameResult, []string, error) {
	results := make([]types.FrameResult, 0, len(frames))
	var classified []string

	for _, frame := range frames {
		res := types.FrameResult{Frame: filepath.Base(frame)}

		out, err := p.inference.ClassifyFrame(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			slog.Warn("frame classification failed", "frame", res.Frame, "error", err)
			res.Error = err.Error()
		} else {
			res.Output = out
			classified = append(classified, frame)
		}

		results = append(results, res)
	}

	return results, classified, nil
}

func frameSummaries(results []types.FrameResult) []string {
	summaries := make([]string, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// representativeFrames picks up to n frames evenly spaced over frames,
// always including the first and last.
func representativeFrames(frames []string, n int) []string {
	k := min(n, len(frames))
	if k <= 0 {
		return nil
	}
	if k == 1 {
		return []string{frames[0]}
	}

	picked := make([]string, 0, k)
	for i := 0; i < k; i++ {
		picked = append(picked, frames[i*(len(frames)-1)/(k-1)])
	}
	return picked
}

func parseDeepfakeReport(raw string) (types.DeepfakeReport, error) {
	doc, ok := utils.ExtractJSONObject(raw)
	if !ok {
		return types.DeepfakeReport{}, utils.TryNext(fmt.Errorf("deepfake report is not a JSON object"))
	}

	var report types.DeepfakeReport

	report.Summary = strings.TrimSpace(doc.Get("summary").String())
	if v, ok := types.ParseVerdict(strings.ToLower(strings.TrimSpace(doc.Get("verdict").String()))); ok {
		report.Verdict = v
	}
	if c, ok := utils.Number(doc.Get("confidence")); ok {
		c = min(100, max(0, c))
		report.Confidence = &c
	}

	if traces := doc.Get("traces"); traces.IsObject() {
		var t types.Traces
		t.TemporalInconsistency, _ = utils.Number(traces.Get("temporal_inconsistency"))
		t.FacialArtifactScore, _ = utils.Number(traces.Get("facial_artifact_score"))
		t.MetadataMismatchScore, _ = utils.Number(traces.Get("metadata_mismatch_score"))
		report.Traces = &t
	}

	for _, a := range doc.Get("frame_annotations").Array() {
		if !a.IsObject() {
			continue
		}
		annotation := types.FrameAnnotation{
			Frame:  a.Get("frame").String(),
			Reason: a.Get("reason").String(),
		}
		if h := a.Get("heatmap"); h.Type == gjson.String && h.String() != "" {
			heatmap := h.String()
			annotation.Heatmap = &heatmap
		}
		report.FrameAnnotations = append(report.FrameAnnotations, annotation)
	}

	report.Notes = doc.Get("notes").String()

	return report, nil
}

func aggregateSummary(agg types.AggregateVerdict) string {
	return fmt.Sprintf(
		"%d of %d sampled frames were classified as manipulated (%.1f%%). Verdict: %s with %.1f%% confidence.",
		agg.FakeVotes, agg.Voted+agg.Errored, agg.Ratio*100, agg.Verdict, agg.Confidence,
	)
}

// synthesizeDeepfakeReport stands in for the model's report when none could
// be obtained or parsed.
func synthesizeDeepfakeReport(agg types.AggregateVerdict) types.DeepfakeReport {
	confidence := agg.Confidence
	return types.DeepfakeReport{
		Summary:     aggregateSummary(agg),
		Verdict:     agg.Verdict,
		Confidence:  &confidence,
		Notes:       "report synthesized from frame statistics",
		Synthesized: true,
	}
}

func defaultFrameAnnotations(results []types.FrameResult) []types.FrameAnnotation {
	annotations := []types.FrameAnnotation{}
	for _, r := range results {
		if r.Failed() {
			continue
		}
		if fake, _, _ := frameVote(r.Output); fake {
			annotations = append(annotations, types.FrameAnnotation{Frame: r.Frame, Reason: r.Output.Summary()})
		}
	}
	return annotations
}

// mergeDeepfakeResult prefers the report's fields and fills the gaps from the
// aggregate.
func mergeDeepfakeResult(agg types.AggregateVerdict, results []types.FrameResult, report types.DeepfakeReport) *types.DeepfakeResult {
	result := &types.DeepfakeResult{
		Summary:    report.Summary,
		Type:       types.ResultTypeDeepfake,
		Verdict:    agg.Verdict,
		Confidence: agg.Confidence,
		Traces: types.Traces{
			FacialArtifactScore: agg.Ratio * 100,
		},
		FrameAnnotations: report.FrameAnnotations,
		Notes:            report.Notes,
		Raw:              types.DeepfakeRaw{ParsedReport: &report},
	}

	if result.Summary == "" {
		result.Summary = aggregateSummary(agg)
	}
	if report.Verdict != "" {
		result.Verdict = report.Verdict
	}
	if report.Confidence != nil {
		result.Confidence = *report.Confidence
	}
	if report.Traces != nil {
		result.Traces = *report.Traces
	}
	if len(result.FrameAnnotations) == 0 {
		result.FrameAnnotations = defaultFrameAnnotations(results)
	}

	return result
}
