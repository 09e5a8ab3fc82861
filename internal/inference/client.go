package inference

import (
	"audit-worker/internal/config"
	"audit-worker/internal/core/types"
	"audit-worker/internal/core/utils"
	"context"
	"fmt"
	"log/slog"
	"os"
)

const (
	MaxReportImages = 3

	jsonOnlyInstruction = "\n\nRespond with a single valid JSON object only. Do not include markdown, code fences or any other text."
)

type FrameClassifier interface {
	ClassifyImage(ctx context.Context, image []byte) (types.FrameOutput, error)
}

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type VisionChat interface {
	ChatWithImages(ctx context.Context, prompt string, imagePaths []string) (string, error)
}

// Client is the single entry point the pipelines use to reach model
// providers. Every provider call is retried under the client's policy.
type Client struct {
	classifier FrameClassifier
	text       TextGenerator
	vision     VisionChat
	policy     utils.RetryPolicy
}

// NewClient wires the given providers. vision may be nil, in which case
// ReportInference always uses the text model.
func NewClient(classifier FrameClassifier, text TextGenerator, vision VisionChat, policy utils.RetryPolicy) *Client {
	return &Client{classifier: classifier, text: text, vision: vision, policy: policy}
}

func NewClientFromConfig(cfg config.InferenceConfig, policy utils.RetryPolicy) (*Client, error) {
	hf := NewHuggingFace(cfg.APIURL, cfg.Token, cfg.FrameClassifierModel, cfg.TextModel, cfg.Timeout)

	var text TextGenerator = hf
	if cfg.TextProvider == config.TextProviderOpenAI {
		lc, err := NewLangchainText(cfg.ReportModelURL, cfg.Token, cfg.TextModel)
		if err != nil {
			return nil, err
		}
		text = lc
	}

	var vision VisionChat
	if cfg.ReportModel != "" {
		vision = NewOpenAIVision(cfg.ReportModelURL, cfg.Token, cfg.ReportModel, cfg.Timeout)
	}

	return NewClient(hf, text, vision, policy), nil
}

func (c *Client) ClassifyFrame(ctx context.Context, imagePath string) (types.FrameOutput, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return types.FrameOutput{}, fmt.Errorf("failed to read frame %s: %w", imagePath, err)
	}

	return utils.Retry(ctx, c.policy, func() (types.FrameOutput, error) {
		out, err := c.classifier.ClassifyImage(ctx, image)
		if err != nil {
			slog.Warn("frame classification attempt failed", "frame", imagePath, "error", err)
			return types.FrameOutput{}, classifyRetry(err)
		}
		return out, nil
	})
}

func (c *Client) TextInference(ctx context.Context, prompt string) (string, error) {
	return utils.Retry(ctx, c.policy, func() (string, error) {
		out, err := c.text.GenerateText(ctx, prompt)
		if err != nil {
			slog.Warn("text inference attempt failed", "error", err)
			return "", classifyRetry(err)
		}
		return out, nil
	})
}

// ReportInference asks the multimodal model for a report over the prompt and
// up to MaxReportImages images. If that fails for any reason the text model is
// asked instead, with an instruction to answer in JSON. Only the text model's
// error is returned.
func (c *Client) ReportInference(ctx context.Context, prompt string, imagePaths []string) (string, error) {
	if len(imagePaths) > MaxReportImages {
		imagePaths = imagePaths[:MaxReportImages]
	}

	var strategies []utils.Strategy[string]
	if c.vision != nil {
		strategies = append(strategies, utils.Strategy[string]{
			Name: "multimodal",
			Attempt: func(ctx context.Context) (string, error) {
				out, err := c.multimodal(ctx, prompt, imagePaths)
				if err != nil {
					return "", utils.TryNext(err)
				}
				return out, nil
			},
		})
	}
	strategies = append(strategies, utils.Strategy[string]{
		Name: "text",
		Attempt: func(ctx context.Context) (string, error) {
			return c.TextInference(ctx, prompt+jsonOnlyInstruction)
		},
	})

	return utils.FirstSuccess(ctx, strategies...)
}

func (c *Client) multimodal(ctx context.Context, prompt string, imagePaths []string) (string, error) {
	return utils.Retry(ctx, c.policy, func() (string, error) {
		out, err := c.vision.ChatWithImages(ctx, prompt, imagePaths)
		if err != nil {
			slog.Warn("multimodal inference attempt failed", "images", len(imagePaths), "error", err)
			return "", classifyRetry(err)
		}
		return out, nil
	})
}
