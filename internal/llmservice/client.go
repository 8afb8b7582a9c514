package llmservice

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/openai"

	"curabot/internal/config"
)

// GenerateContent sends prompt as a single human message to llm
func GenerateContent(ctx context.Context, llm llms.Model, prompt string, maxTokens int) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var opts []llms.CallOption
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	resp, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Content, nil
}

// newGroqCall talks to Groq through its OpenAI-compatible endpoint
func newGroqCall(pc config.ProviderConfig, key string) (CallFunc, error) {
	log.Debug().Str("provider", pc.Name).Str("model", pc.Model).Str("base_url", pc.BaseURL).Msg("Creating OpenAI-compatible client")
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithModel(pc.Model),
	}
	if pc.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(pc.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, prompt string) (string, error) {
		return GenerateContent(ctx, llm, prompt, pc.MaxTokens)
	}, nil
}

func newCohereCall(pc config.ProviderConfig, key string) (CallFunc, error) {
	opts := []cohere.Option{
		cohere.WithToken(key),
		cohere.WithModel(pc.Model),
	}
	llm, err := cohere.New(opts...)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, prompt string) (string, error) {
		return GenerateContent(ctx, llm, prompt, pc.MaxTokens)
	}, nil
}
