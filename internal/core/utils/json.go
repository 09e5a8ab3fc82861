package utils

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSONObject finds the JSON object in a model answer. Models often
// wrap the object in prose or markdown fences.
func ExtractJSONObject(text string) (gjson.Result, bool) {
	trimmed := strings.TrimSpace(text)
	if gjson.Valid(trimmed) {
		if res := gjson.Parse(trimmed); res.IsObject() {
			return res, true
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}

	candidate := trimmed[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, false
	}

	return gjson.Parse(candidate), true
}

// Number reads a numeric field that models sometimes emit as a string such as
// "85" or "85%".
func Number(res gjson.Result) (float64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(res.String()), "%"), 64)
		return v, err == nil
	default:
		return 0, false
	}
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
