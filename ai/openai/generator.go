package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/dossier/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyCompletion is returned when the model answers with no choices.
var ErrEmptyCompletion = errors.New("model returned no completion")

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AnswerHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.AnswerModel),
	)
	if err != nil {
		return nil, err
	}

	return newGeneratorWithModel(client), nil
}

func newGeneratorWithModel(client llms.Model) *Generator {
	return &Generator{
		client:      client,
		temperature: 0.2,
		maxTokens:   1024,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new answer generator using the provided configuration.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate sends the prompts to the chat model and returns the trimmed reply.
func (g *Generator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if systemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	g.logger.Debug("generating completion", "prompt_length", len(prompt))
	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens))
	if err != nil {
		g.logger.Error("failed to generate completion", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
