package core

import (
	"audit-worker/internal/core/types"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"text/template"

	"gopkg.in/yaml.v2"
)

//go:embed prompts.yaml
var promptsYAML []byte

type auditPromptData struct {
	ReportId string
	Metadata map[string]any
}

type deepfakePromptData struct {
	Metadata   map[string]any
	Verdict    types.Verdict
	Confidence float64
	Stats      types.RunStats
	Frames     []string
}

var promptFuncs = template.FuncMap{
	"json": func(v any) string {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	},
	"pct": func(ratio float64) string {
		return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
	},
}

type promptTemplates struct {
	audit    *template.Template
	deepfake *template.Template
}

var prompts = mustLoadPrompts(promptsYAML)

func mustLoadPrompts(data []byte) promptTemplates {
	raw := struct {
		Prompts struct {
			Audit    string `yaml:"audit"`
			Deepfake string `yaml:"deepfake"`
		} `yaml:"prompts"`
	}{}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("invalid prompts.yaml: %v", err))
	}

	return promptTemplates{
		audit:    template.Must(template.New("audit").Funcs(promptFuncs).Option("missingkey=zero").Parse(raw.Prompts.Audit)),
		deepfake: template.Must(template.New("deepfake").Funcs(promptFuncs).Option("missingkey=zero").Parse(raw.Prompts.Deepfake)),
	}
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
