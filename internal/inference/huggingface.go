package inference

import (
	"audit-worker/internal/core/types"
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxNewTokens = 1024

// HuggingFace calls hosted models through the serverless inference API:
// POST {base}/models/{model}.
type HuggingFace struct {
	client          *resty.Client
	classifierModel string
	textModel       string
}

var (
	_ FrameClassifier = (*HuggingFace)(nil)
	_ TextGenerator   = (*HuggingFace)(nil)
)

func NewHuggingFace(baseURL, token, classifierModel, textModel string, timeout time.Duration) *HuggingFace {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HuggingFace{
		client:          client,
		classifierModel: classifierModel,
		textModel:       textModel,
	}
}

func (h *HuggingFace) ClassifyImage(ctx context.Context, image []byte) (types.FrameOutput, error) {
	res, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", http.DetectContentType(image)).
		SetBody(image).
		Post("/models/" + h.classifierModel)
	if err != nil {
		return types.FrameOutput{}, err
	}

	if !res.IsSuccess() {
		return types.FrameOutput{}, &ProviderError{Provider: "huggingface", StatusCode: res.StatusCode(), Body: res.String()}
	}

	return ParseFrameOutput(res.Body()), nil
}

type textGenerationRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (h *HuggingFace) GenerateText(ctx context.Context, prompt string) (string, error) {
	res, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(textGenerationRequest{
			Inputs: prompt,
			Parameters: map[string]any{
				"max_new_tokens":   maxNewTokens,
				"return_full_text": false,
			},
		}).
		Post("/models/" + h.textModel)
	if err != nil {
		return "", err
	}

	if !res.IsSuccess() {
		return "", &ProviderError{Provider: "huggingface", StatusCode: res.StatusCode(), Body: res.String()}
	}

	return ExtractGeneratedText(res.Body()), nil
}
