package llmservice

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"curabot/internal/config"
)

func newOpenAICall(pc config.ProviderConfig, key string) CallFunc {
	oaiCfg := openai.DefaultConfig(key)
	if pc.BaseURL != "" {
		oaiCfg.BaseURL = pc.BaseURL
	}
	client := openai.NewClientWithConfig(oaiCfg)

	return func(ctx context.Context, prompt string) (string, error) {
		req := openai.ChatCompletionRequest{
			Model: pc.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}
		if pc.MaxTokens > 0 {
			req.MaxTokens = pc.MaxTokens
		}
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	}
}
