package inference

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainText generates text through any OpenAI compatible completion API.
type LangchainText struct {
	llm *openai.LLM
}

var _ TextGenerator = (*LangchainText)(nil)

func NewLangchainText(baseURL, token, model string) (*LangchainText, error) {
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create langchain openai client: %w", err)
	}

	return &LangchainText{llm: llm}, nil
}

func (l *LangchainText) GenerateText(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l.llm, prompt, llms.WithMaxTokens(maxNewTokens))
}
