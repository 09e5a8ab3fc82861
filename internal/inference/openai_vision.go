package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIVision sends a prompt with inline images to an OpenAI compatible chat
// completions endpoint.
type OpenAIVision struct {
	client openai.Client
	model  string
}

var _ VisionChat = (*OpenAIVision)(nil)

func NewOpenAIVision(baseURL, token, model string, timeout time.Duration) *OpenAIVision {
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		// Retries are driven by the inference client.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &OpenAIVision{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (o *OpenAIVision) ChatWithImages(ctx context.Context, prompt string, imagePaths []string) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(prompt)}
	for _, path := range imagePaths {
		dataURL, err := imageDataURL(path)
		if err != nil {
			return "", err
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
	}

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &ProviderError{Provider: "openai", StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("multimodal chat completion failed: %w", err)
	}

	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return res.Choices[0].Message.Content, nil
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
