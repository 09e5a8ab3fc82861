package core

import (
	"audit-worker/internal/core/types"
	"regexp"
	"strconv"
	"strings"
)

const (
	fakeRatioThreshold = 0.4
	realRatioThreshold = 0.1

	minEstimatedConfidence = 40.0
	maxConfidence          = 100.0
)

// Substrings, not exact labels: providers rename their classes between model versions.
var fakeMarkers = []string{"fake", "synthetic", "manipul"}

var confidencePattern = regexp.MustCompile(`(?i)confidence[^0-9]{0,5}(\d+(?:\.\d+)?)`)

func isFakeText(s string) bool {
	s = strings.ToLower(s)
	for _, marker := range fakeMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func clampConfidence(c float64) float64 {
	return min(maxConfidence, max(0, c))
}

// frameVote returns whether the output votes fake and, if one is present, the
// confidence it carries on a 0-100 scale.
func frameVote(out types.FrameOutput) (fake bool, confidence float64, hasConfidence bool) {
	switch out.Kind {
	case types.OutputStructured:
		fake = isFakeText(out.Label)
		if out.HasScore {
			return fake, clampConfidence(out.Score * 100), true
		}
		return fake, 0, false

	case types.OutputText:
		fake = isFakeText(out.Text)
		if m := confidencePattern.FindStringSubmatch(out.Text); m != nil {
			if c, err := strconv.ParseFloat(m[1], 64); err == nil {
				return fake, clampConfidence(c), true
			}
		}
		return fake, 0, false

	default:
		return isFakeText(string(out.Raw)), 0, false
	}
}

func verdictForRatio(ratio float64) types.Verdict {
	switch {
	case ratio > fakeRatioThreshold:
		return types.LikelyFake
	case ratio < realRatioThreshold:
		return types.LikelyReal
	default:
		return types.Inconclusive
	}
}

// Aggregate turns per-frame classifier outputs into a single verdict. Frames
// carrying an error marker do not vote but still count toward the ratio's
// denominator, so failed frames weaken the verdict instead of vanishing.
func Aggregate(results []types.FrameResult) types.AggregateVerdict {
	var agg types.AggregateVerdict
	var samples []float64

	for _, res := range results {
		if res.Failed() {
			agg.Errored++
			continue
		}
		agg.Voted++

		fake, confidence, ok := frameVote(res.Output)
		if fake {
			agg.FakeVotes++
		}
		if ok {
			samples = append(samples, confidence)
		}
	}

	if agg.Voted == 0 {
		agg.Verdict = types.Inconclusive
		agg.Confidence = minEstimatedConfidence
		return agg
	}

	agg.Ratio = float64(agg.FakeVotes) / float64(len(results))
	agg.Verdict = verdictForRatio(agg.Ratio)

	if len(samples) > 0 {
		sum := 0.0
		for _, s := range samples {
			sum += s
		}
		agg.Confidence = sum / float64(len(samples))
	} else {
		agg.Confidence = min(maxConfidence, max(minEstimatedConfidence, agg.Ratio*100+40))
	}

	return agg
}
