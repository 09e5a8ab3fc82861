package inference

import (
	"audit-worker/internal/core/types"
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ParseFrameOutput converts a classifier response into a FrameOutput. Label
// lists (possibly nested one level deeper per input) become Structured using
// the highest scored entry, text shapes become Text, anything else is Opaque.
func ParseFrameOutput(body []byte) types.FrameOutput {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return types.Opaque(nil)
	}
	if !gjson.ValidBytes(trimmed) {
		return types.Text(string(trimmed))
	}

	res := gjson.ParseBytes(trimmed)

	switch {
	case res.Type == gjson.String:
		return types.Text(res.String())

	case res.IsArray():
		elems := flatten(res)
		if out, ok := topLabel(elems); ok {
			return out
		}
		for _, e := range elems {
			if e.Type == gjson.String {
				return types.Text(e.String())
			}
			if text, ok := generatedText(e); ok {
				return types.Text(text)
			}
		}

	case res.IsObject():
		if out, ok := topLabel([]gjson.Result{res}); ok {
			return out
		}
		if text, ok := generatedText(res); ok {
			return types.Text(text)
		}
	}

	return types.Opaque(json.RawMessage(res.Raw))
}

// ExtractGeneratedText returns the first generated_text or text field of a
// text generation response, or the response itself if there is none.
func ExtractGeneratedText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if !gjson.ValidBytes(trimmed) {
		return string(trimmed)
	}

	res := gjson.ParseBytes(trimmed)

	switch {
	case res.Type == gjson.String:
		return res.String()

	case res.IsArray():
		for _, e := range res.Array() {
			if e.Type == gjson.String {
				return e.String()
			}
			if text, ok := generatedText(e); ok {
				return text
			}
		}

	case res.IsObject():
		if text, ok := generatedText(res); ok {
			return text
		}
	}

	return res.Raw
}

func generatedText(res gjson.Result) (string, bool) {
	if !res.IsObject() {
		return "", false
	}
	for _, field := range []string{"generated_text", "text"} {
		if v := res.Get(field); v.Type == gjson.String {
			return v.String(), true
		}
	}
	return "", false
}

func flatten(res gjson.Result) []gjson.Result {
	var out []gjson.Result
	for _, e := range res.Array() {
		if e.IsArray() {
			out = append(out, flatten(e)...)
		} else {
			out = append(out, e)
		}
	}
	return out
}

func topLabel(elems []gjson.Result) (types.FrameOutput, bool) {
	var (
		best      gjson.Result
		bestScore float64
		found     bool
		scored    bool
	)

	for _, e := range elems {
		if !e.IsObject() {
			continue
		}
		label := e.Get("label")
		if label.Type != gjson.String {
			continue
		}

		score := e.Get("score")
		hasScore := score.Type == gjson.Number

		switch {
		case !found:
			best, found, scored = e, true, hasScore
			if hasScore {
				bestScore = score.Float()
			}
		case hasScore && (!scored || score.Float() > bestScore):
			best, scored, bestScore = e, true, score.Float()
		}
	}

	if !found {
		return types.FrameOutput{}, false
	}
	if scored {
		return types.Structured(best.Get("label").String(), bestScore), true
	}
	return types.StructuredLabel(best.Get("label").String()), true
}
