package inference

import (
	"audit-worker/internal/core/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrameOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.FrameOutput
	}{
		{
			name: "RankedLabels",
			body: `[{"label":"Realism","score":0.12},{"label":"Deepfake","score":0.88}]`,
			want: types.Structured("Deepfake", 0.88),
		},
		{
			name: "NestedRankedLabels",
			body: `[[{"label":"real","score":0.7},{"label":"fake","score":0.3}]]`,
			want: types.Structured("real", 0.7),
		},
		{
			name: "SingleObject",
			body: `{"label":"fake","score":0.51}`,
			want: types.Structured("fake", 0.51),
		},
		{
			name: "LabelWithoutScore",
			body: `[{"label":"synthetic"}]`,
			want: types.StructuredLabel("synthetic"),
		},
		{
			name: "ScoredBeatsUnscored",
			body: `[{"label":"unknown"},{"label":"fake","score":0.2}]`,
			want: types.Structured("fake", 0.2),
		},
		{
			name: "GeneratedText",
			body: `[{"generated_text":"a manipulated face"}]`,
			want: types.Text("a manipulated face"),
		},
		{
			name: "TextField",
			body: `{"text":"looks real"}`,
			want: types.Text("looks real"),
		},
		{
			name: "JSONString",
			body: `"plain answer"`,
			want: types.Text("plain answer"),
		},
		{
			name: "NotJSON",
			body: "this is not json",
			want: types.Text("this is not json"),
		},
		{
			name: "OtherObject",
			body: `{"prediction":{"class":"fake"}}`,
			want: types.Opaque([]byte(`{"prediction":{"class":"fake"}}`)),
		},
		{
			name: "Number",
			body: `0.5`,
			want: types.Opaque([]byte(`0.5`)),
		},
		{
			name: "Empty",
			body: "  ",
			want: types.Opaque(nil),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseFrameOutput([]byte(tc.body)))
		})
	}
}

func TestExtractGeneratedText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"Array", `[{"generated_text":"{\"summary\":\"ok\"}"}]`, `{"summary":"ok"}`},
		{"Object", `{"generated_text":"hello"}`, "hello"},
		{"TextField", `{"text":"hello"}`, "hello"},
		{"String", `"hello"`, "hello"},
		{"ArrayOfStrings", `["first","second"]`, "first"},
		{"PlainText", `not json at all`, "not json at all"},
		{"UnknownShape", `{"output":{"value":1}}`, `{"output":{"value":1}}`},
		{"EmptyArray", `[]`, `[]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractGeneratedText([]byte(tc.body)))
		})
	}
}
