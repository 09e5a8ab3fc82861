package core_test

import (
	"audit-worker/internal/core"
	"audit-worker/internal/core/types"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func frames(outputs ...types.FrameOutput) []types.FrameResult {
	results := make([]types.FrameResult, 0, len(outputs))
	for i, out := range outputs {
		results = append(results, types.FrameResult{Frame: fmt.Sprintf("frame_%05d.jpg", i+1), Output: out})
	}
	return results
}

func TestAggregateTwoFakeOneReal(t *testing.T) {
	agg := core.Aggregate(frames(
		types.Structured("fake", 0.9),
		types.Structured("fake", 0.9),
		types.Structured("real", 0.8),
	))

	assert.Equal(t, types.LikelyFake, agg.Verdict)
	assert.InDelta(t, 2.0/3.0, agg.Ratio, 1e-9)
	assert.Equal(t, 2, agg.FakeVotes)
	assert.Equal(t, 3, agg.Voted)
	assert.InDelta(t, (90.0+90.0+80.0)/3, agg.Confidence, 1e-9)
}

func TestAggregateVerdictBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		fake    int
		total   int
		verdict types.Verdict
	}{
		{"AllReal", 0, 10, types.LikelyReal},
		{"JustBelowRealThreshold", 1, 11, types.LikelyReal},
		{"ExactlyRealThreshold", 1, 10, types.Inconclusive},
		{"Middle", 3, 10, types.Inconclusive},
		{"ExactlyFakeThreshold", 2, 5, types.Inconclusive},
		{"JustAboveFakeThreshold", 41, 100, types.LikelyFake},
		{"AllFake", 4, 4, types.LikelyFake},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outputs := make([]types.FrameOutput, 0, tc.total)
			for i := 0; i < tc.total; i++ {
				if i < tc.fake {
					outputs = append(outputs, types.StructuredLabel("Fake"))
				} else {
					outputs = append(outputs, types.StructuredLabel("Realism"))
				}
			}
			agg := core.Aggregate(frames(outputs...))
			assert.Equal(t, tc.verdict, agg.Verdict, "ratio %v", agg.Ratio)
		})
	}
}

func TestAggregateEstimatedConfidence(t *testing.T) {
	// No scores anywhere: confidence is derived from the ratio and clamped to [40,100].
	agg := core.Aggregate(frames(types.StructuredLabel("real"), types.StructuredLabel("real")))
	assert.Equal(t, 40.0, agg.Confidence)
	assert.Equal(t, types.LikelyReal, agg.Verdict)

	agg = core.Aggregate(frames(types.StructuredLabel("fake"), types.StructuredLabel("real")))
	assert.Equal(t, 90.0, agg.Confidence)

	agg = core.Aggregate(frames(types.StructuredLabel("deepfake"), types.StructuredLabel("synthetic")))
	assert.Equal(t, 100.0, agg.Confidence)
}

func TestAggregateLabelMatching(t *testing.T) {
	for _, label := range []string{"FAKE", "Deepfake", "synthetic_face", "Manipulated", "manipulation"} {
		agg := core.Aggregate(frames(types.StructuredLabel(label)))
		assert.Equal(t, 1, agg.FakeVotes, label)
	}
	for _, label := range []string{"real", "authentic", "human"} {
		agg := core.Aggregate(frames(types.StructuredLabel(label)))
		assert.Equal(t, 0, agg.FakeVotes, label)
	}
}

func TestAggregateTextOutputs(t *testing.T) {
	agg := core.Aggregate(frames(
		types.Text("This frame looks MANIPULATED. Confidence: 72"),
		types.Text("looks authentic, confidence 30.5"),
		types.Text("no opinion"),
	))

	assert.Equal(t, 1, agg.FakeVotes)
	assert.Equal(t, 3, agg.Voted)
	assert.InDelta(t, (72+30.5)/2, agg.Confidence, 1e-9)
}

func TestAggregateOpaqueOutputs(t *testing.T) {
	agg := core.Aggregate(frames(
		types.Opaque(json.RawMessage(`{"prediction":{"class":"Fake"}}`)),
		types.Opaque(json.RawMessage(`{"prediction":{"class":"Real"}}`)),
		types.Opaque(json.RawMessage(`not even json`)),
		types.Opaque(nil),
	))

	assert.Equal(t, 1, agg.FakeVotes)
	assert.Equal(t, 4, agg.Voted)
	assert.Equal(t, types.Inconclusive, agg.Verdict)
}

func TestAggregateErroredFramesCountInRatio(t *testing.T) {
	results := frames(types.Structured("fake", 0.95), types.Structured("real", 0.9))
	results = append(results, types.FrameResult{Frame: "frame_00003.jpg", Error: "provider timeout"})

	agg := core.Aggregate(results)
	assert.Equal(t, 2, agg.Voted)
	assert.Equal(t, 1, agg.Errored)
	assert.Equal(t, 1, agg.FakeVotes)
	assert.InDelta(t, 1.0/3.0, agg.Ratio, 1e-9)
	assert.Equal(t, types.Inconclusive, agg.Verdict)
	assert.InDelta(t, (95.0+90.0)/2, agg.Confidence, 1e-9)
}

func TestAggregateMostlyErroredFramesStayInconclusive(t *testing.T) {
	results := frames(types.Structured("fake", 0.9))
	for i := 0; i < 4; i++ {
		results = append(results, types.FrameResult{Frame: fmt.Sprintf("frame_%05d.jpg", i+2), Error: "status 503"})
	}

	agg := core.Aggregate(results)
	assert.Equal(t, 1, agg.FakeVotes)
	assert.Equal(t, 1, agg.Voted)
	assert.Equal(t, 4, agg.Errored)
	assert.InDelta(t, 0.2, agg.Ratio, 1e-9)
	assert.Equal(t, types.Inconclusive, agg.Verdict)
}

func TestAggregateAllFramesErrored(t *testing.T) {
	results := []types.FrameResult{
		{Frame: "frame_00001.jpg", Error: "status 503"},
		{Frame: "frame_00002.jpg", Error: "status 503"},
	}

	agg := core.Aggregate(results)
	assert.Equal(t, 0, agg.Voted)
	assert.Equal(t, 2, agg.Errored)
	assert.Equal(t, 0.0, agg.Ratio)
	assert.Equal(t, types.Inconclusive, agg.Verdict)
	assert.Equal(t, 40.0, agg.Confidence)
}

func TestAggregateEmpty(t *testing.T) {
	agg := core.Aggregate(nil)
	assert.Equal(t, types.Inconclusive, agg.Verdict)
	assert.Equal(t, 0.0, agg.Ratio)
}

func TestAggregateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	labels := []string{"fake", "real", "synthetic", "authentic", "Manipulated"}

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(20)
		outputs := make([]types.FrameOutput, 0, n)
		for j := 0; j < n; j++ {
			switch rng.Intn(4) {
			case 0:
				outputs = append(outputs, types.Structured(labels[rng.Intn(len(labels))], rng.Float64()*1.5))
			case 1:
				outputs = append(outputs, types.Text(fmt.Sprintf("%s confidence: %d", labels[rng.Intn(len(labels))], rng.Intn(400))))
			case 2:
				outputs = append(outputs, types.Opaque(json.RawMessage(fmt.Sprintf(`{"x":"%s"}`, labels[rng.Intn(len(labels))]))))
			default:
				outputs = append(outputs, types.StructuredLabel(labels[rng.Intn(len(labels))]))
			}
		}

		agg := core.Aggregate(frames(outputs...))
		assert.GreaterOrEqual(t, agg.Ratio, 0.0)
		assert.LessOrEqual(t, agg.Ratio, 1.0)
		assert.GreaterOrEqual(t, agg.Confidence, 0.0)
		assert.LessOrEqual(t, agg.Confidence, 100.0)
	}
}
