package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"course-rag/internal/config"
	"course-rag/internal/models"
)

// Client synthesizes natural-language answers from retrieved passages.
type Client struct {
	model     llms.Model
	maxTokens int
}

func New(cfg *config.LLMConfig) (*Client, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		model, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key(), "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	return &Client{model: model, maxTokens: cfg.MaxTokens}, nil
}

// Synthesize composes the retrieval prompt from the passages and the question
// and returns the model's answer.
func (c *Client) Synthesize(ctx context.Context, question string, passages []string) (string, error) {
	prompt := fmt.Sprintf(models.AnswerPromptTemplate,
		strings.Join(passages, models.ContextSeparator), question)
	log.Debug().Int("passages", len(passages)).Msg("Generating answer")

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	res, err := c.model.GenerateContent(ctx, messages, llms.WithMaxTokens(c.maxTokens))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}
