package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"curabot/internal/config"
	"curabot/internal/models"
)

// CallFunc sends a single user prompt to a provider
type CallFunc func(ctx context.Context, prompt string) (string, error)

// Provider describes one answer-generation backend. A provider is enabled
// iff its credential is configured.
type Provider struct {
	Name    string
	Enabled bool
	Timeout time.Duration
	Call    CallFunc
}

type State string

const (
	NotAttempted State = "NOT_ATTEMPTED"
	Succeeded    State = "SUCCEEDED"
	Failed       State = "FAILED"
)

type Outcome string

const (
	Answered Outcome = "ANSWERED"
	Degraded Outcome = "DEGRADED"
)

// ProviderCallError is a failed attempt against one provider. It is logged
// and never returned to callers of Answer.
type ProviderCallError struct {
	Provider string
	Err      error
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

type Attempt struct {
	Provider string
	State    State
	Err      error
	Duration time.Duration
}

// Report records how an answer was obtained
type Report struct {
	Answer   string
	Outcome  Outcome
	Provider string // empty when degraded
	Attempts []Attempt
}

// Service answers prompts from the first provider that succeeds
type Service struct {
	providers []Provider
	fallback  string
}

// NewService fails with *config.ConfigurationError when no provider is
// enabled and there is no fallback text to degrade to.
func NewService(providers []Provider, fallback string) (*Service, error) {
	enabled := 0
	for _, p := range providers {
		if p.Enabled {
			enabled++
		}
	}
	if strings.TrimSpace(fallback) == "" {
		if enabled == 0 {
			return nil, &config.ConfigurationError{Reason: "no answer provider has a credential and no fallback message is configured"}
		}
		log.Warn().Msg("Empty fallback message, using the default")
		fallback = models.DefaultFallbackMessage
	}
	if enabled == 0 {
		log.Warn().Msg("No answer provider enabled, every answer will be the fallback message")
	}
	return &Service{
		providers: append([]Provider(nil), providers...),
		fallback:  fallback,
	}, nil
}

// Enabled returns the names of the providers that will be attempted, in order
func (s *Service) Enabled() []string {
	var names []string
	for _, p := range s.providers {
		if p.Enabled {
			names = append(names, p.Name)
		}
	}
	return names
}

// Answer always returns a usable answer
func (s *Service) Answer(ctx context.Context, prompt string) string {
	return s.AnswerWithReport(ctx, prompt).Answer
}

// AnswerWithReport tries enabled providers once each, in order, and stops at
// the first non-empty answer. If none succeeds the fallback message is
// returned and all collected errors are logged.
func (s *Service) AnswerWithReport(ctx context.Context, prompt string) Report {
	report := Report{Attempts: make([]Attempt, len(s.providers))}
	for i, p := range s.providers {
		report.Attempts[i] = Attempt{Provider: p.Name, State: NotAttempted}
	}

	var errs []error
	for i, p := range s.providers {
		if !p.Enabled || p.Call == nil {
			continue
		}

		start := time.Now()
		answer, err := s.attempt(ctx, p, prompt)
		report.Attempts[i].Duration = time.Since(start)

		if err != nil {
			callErr := &ProviderCallError{Provider: p.Name, Err: err}
			report.Attempts[i].State = Failed
			report.Attempts[i].Err = callErr
			errs = append(errs, callErr)
			log.Warn().
				Str("provider", p.Name).
				Dur("duration", report.Attempts[i].Duration).
				Err(err).
				Msg("Provider failed, trying next")
			continue
		}

		report.Attempts[i].State = Succeeded
		report.Answer = answer
		report.Outcome = Answered
		report.Provider = p.Name
		log.Debug().
			Str("provider", p.Name).
			Int("response_length", len(answer)).
			Dur("duration", report.Attempts[i].Duration).
			Msg("Provider answered")
		return report
	}

	report.Answer = s.fallback
	report.Outcome = Degraded
	ev := log.Warn().Int("failed", len(errs))
	if len(errs) > 0 {
		ev = ev.Errs("errors", errs)
	}
	ev.Msg("All providers failed, returning fallback answer")
	return report
}

func (s *Service) attempt(ctx context.Context, p Provider, prompt string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			answer, err = "", fmt.Errorf("provider panicked: %v", r)
		}
	}()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	res, err := p.Call(ctx, prompt)
	if err != nil {
		return "", err
	}
	res = strings.TrimSpace(res)
	if res == "" {
		return "", fmt.Errorf("empty response")
	}
	return res, nil
}
