package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"curabot/internal/config"
)

func newGeminiCall(ctx context.Context, pc config.ProviderConfig, key string) (CallFunc, error) {
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if pc.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: pc.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, pc.Model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}

		var response strings.Builder
		if resp != nil {
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					response.WriteString(part.Text)
				}
				if response.Len() > 0 {
					break
				}
			}
		}
		if response.Len() == 0 {
			return "", errors.New("no text in Gemini response")
		}
		return response.String(), nil
	}, nil
}
