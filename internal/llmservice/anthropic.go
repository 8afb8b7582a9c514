package llmservice

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"curabot/internal/config"
)

const defaultClaudeMaxTokens = 1024

func newAnthropicCall(pc config.ProviderConfig, key string) CallFunc {
	// One request per attempt; the fallback chain moves on instead of retrying.
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if pc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(pc.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(pc.Model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", err
		}

		var response strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				response.WriteString(block.Text)
			}
		}
		return response.String(), nil
	}
}
