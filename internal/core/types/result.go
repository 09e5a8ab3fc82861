package types

const (
	ResultTypeAudit    = "audit"
	ResultTypeDeepfake = "deepfake"
)

type AuditScores struct {
	Transparency float64 `json:"transparency"`
	Fairness     float64 `json:"fairness"`
	Privacy      float64 `json:"privacy"`
	Robustness   float64 `json:"robustness"`
}

type AuditResult struct {
	Summary         string            `json:"summary"`
	Type            string            `json:"type"`
	Scores          AuditScores       `json:"scores"`
	Metrics         map[string]any    `json:"metrics"`
	FlaggedIssues   []any             `json:"flagged_issues"`
	Recommendations []any             `json:"recommendations"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
}

type Traces struct {
	TemporalInconsistency float64 `json:"temporal_inconsistency"`
	FacialArtifactScore   float64 `json:"facial_artifact_score"`
	MetadataMismatchScore float64 `json:"metadata_mismatch_score"`
}

type FrameAnnotation struct {
	Frame   string  `json:"frame"`
	Reason  string  `json:"reason"`
	Heatmap *string `json:"heatmap"`
}

// DeepfakeReport is the synthesis step's view of the video, either parsed from
// the model's answer or derived from the aggregate.
type DeepfakeReport struct {
	Summary          string            `json:"summary"`
	Verdict          Verdict           `json:"verdict,omitempty"`
	Confidence       *float64          `json:"confidence,omitempty"`
	Traces           *Traces           `json:"traces,omitempty"`
	FrameAnnotations []FrameAnnotation `json:"frame_annotations,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Synthesized      bool              `json:"synthesized,omitempty"`
}

type RunStats struct {
	Frames     int     `json:"frames"`
	Classified int     `json:"classified"`
	FakeVotes  int     `json:"fake_votes"`
	Errored    int     `json:"errored"`
	Ratio      float64 `json:"ratio"`
}

type DeepfakeRaw struct {
	ParsedReport *DeepfakeReport `json:"parsedReport"`
}

type DeepfakeResult struct {
	Summary          string            `json:"summary"`
	Type             string            `json:"type"`
	Verdict          Verdict           `json:"verdict"`
	Confidence       float64           `json:"confidence"`
	Traces           Traces            `json:"traces"`
	FrameAnnotations []FrameAnnotation `json:"frame_annotations"`
	Notes            string            `json:"notes"`
	Artifacts        map[string]string `json:"artifacts,omitempty"`
	Raw              DeepfakeRaw       `json:"raw"`
	Stats            RunStats          `json:"stats"`
}

// FailureResult is written when a run fails.
type FailureResult struct {
	Summary string `json:"summary"`
	Notes   string `json:"notes"`
}
