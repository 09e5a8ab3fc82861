package types

import (
	"strconv"
)

type Verdict string

const (
	LikelyFake   Verdict = "likely_fake"
	LikelyReal   Verdict = "likely_real"
	Inconclusive Verdict = "inconclusive"
)

func ParseVerdict(s string) (Verdict, bool) {
	switch v := Verdict(s); v {
	case LikelyFake, LikelyReal, Inconclusive:
		return v, true
	}
	return "", false
}

type AggregateVerdict struct {
	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Ratio      float64 `json:"ratio"`
	FakeVotes  int     `json:"fake_votes"`
	Voted      int     `json:"voted"`
	Errored    int     `json:"errored"`
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
