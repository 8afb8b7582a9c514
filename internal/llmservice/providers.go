package llmservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"curabot/internal/config"
)

// NewProviders builds the provider chain in configured order. Providers
// without a credential are kept but disabled. A provider whose client cannot
// be constructed stays enabled and fails every call with the construction
// error, so it shows up as a failed attempt.
func NewProviders(ctx context.Context, cfgs []config.ProviderConfig) []Provider {
	providers := make([]Provider, 0, len(cfgs))
	for _, pc := range cfgs {
		timeout, err := pc.TimeoutDuration()
		if err != nil {
			timeout = 0
		}
		p := Provider{Name: pc.Name, Timeout: timeout}

		key := pc.APIKey()
		if key != "" {
			p.Enabled = true
			call, err := newCall(ctx, pc, key)
			if err != nil {
				log.Warn().Str("provider", pc.Name).Err(err).Msg("Failed to create provider client")
				call = failingCall(err)
			}
			p.Call = call
		}

		log.Info().Str("provider", p.Name).Bool("enabled", p.Enabled).Str("model", pc.Model).Msg("Answer provider configured")
		providers = append(providers, p)
	}
	return providers
}

func newCall(ctx context.Context, pc config.ProviderConfig, key string) (CallFunc, error) {
	switch pc.Kind {
	case "openai":
		return newOpenAICall(pc, key), nil
	case "groq":
		return newGroqCall(pc, key)
	case "gemini":
		return newGeminiCall(ctx, pc, key)
	case "cohere":
		return newCohereCall(pc, key)
	case "anthropic":
		return newAnthropicCall(pc, key), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

func failingCall(err error) CallFunc {
	return func(context.Context, string) (string, error) {
		return "", err
	}
}
