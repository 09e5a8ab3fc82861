package types

import (
	"encoding/json"
)

type OutputKind int

const (
	OutputStructured OutputKind = iota + 1
	OutputText
	OutputOpaque
)

func (k OutputKind) String() string {
	switch k {
	case OutputStructured:
		return "structured"
	case OutputText:
		return "text"
	case OutputOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// FrameOutput is what a frame classifier returned, normalized into one of three
// shapes: a top label with an optional score, free text, or any other JSON.
type FrameOutput struct {
	Kind OutputKind

	Label    string
	Score    float64
	HasScore bool

	Text string

	Raw json.RawMessage
}

func Structured(label string, score float64) FrameOutput {
	return FrameOutput{Kind: OutputStructured, Label: label, Score: score, HasScore: true}
}

func StructuredLabel(label string) FrameOutput {
	return FrameOutput{Kind: OutputStructured, Label: label}
}

func Text(text string) FrameOutput {
	return FrameOutput{Kind: OutputText, Text: text}
}

func Opaque(raw json.RawMessage) FrameOutput {
	return FrameOutput{Kind: OutputOpaque, Raw: raw}
}

type frameOutputJSON struct {
	Kind  string          `json:"kind"`
	Label string          `json:"label,omitempty"`
	Score *float64        `json:"score,omitempty"`
	Text  string          `json:"text,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

func (o FrameOutput) MarshalJSON() ([]byte, error) {
	out := frameOutputJSON{Kind: o.Kind.String()}
	switch o.Kind {
	case OutputStructured:
		out.Label = o.Label
		if o.HasScore {
			score := o.Score
			out.Score = &score
		}
	case OutputText:
		out.Text = o.Text
	case OutputOpaque:
		if json.Valid(o.Raw) {
			out.Raw = o.Raw
		}
	}
	return json.Marshal(out)
}

// Summary is a one line description of the output used in prompts.
func (o FrameOutput) Summary() string {
	switch o.Kind {
	case OutputStructured:
		if o.HasScore {
			return o.Label + " (" + formatScore(o.Score) + ")"
		}
		return o.Label
	case OutputText:
		return truncate(o.Text, 120)
	case OutputOpaque:
		return truncate(string(o.Raw), 120)
	default:
		return "unknown"
	}
}

type FrameResult struct {
	Frame  string      `json:"frame"`
	Output FrameOutput `json:"output"`
	Error  string      `json:"error,omitempty"`
}

func (r FrameResult) Failed() bool {
	return r.Error != ""
}

func (r FrameResult) Summary() string {
	if r.Failed() {
		return r.Frame + ": error"
	}
	return r.Frame + ": " + r.Output.Summary()
}
