package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"curabot/internal/models"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	RAG       RAGConfig       `yaml:"rag"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answering AnsweringConfig `yaml:"answering"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr" validate:"required"`
	Mode          string `yaml:"mode" validate:"oneof=debug release test"`
	MaxUploadMB   int    `yaml:"max_upload_mb" validate:"min=1"`
	RatePerMinute int    `yaml:"rate_per_minute" validate:"min=0"`
	RateBurst     int    `yaml:"rate_burst" validate:"min=0"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type AuthConfig struct {
	JWTSecretEnv string `yaml:"jwt_secret_env" validate:"required"`
	TokenTTL     string `yaml:"token_ttl" validate:"required"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=pgdriver postgres"`
	DSN         string `yaml:"dsn"`
	PasswordEnv string `yaml:"password_env"`
	Debug       bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap  int    `yaml:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
	Splitter      string `yaml:"splitter" validate:"oneof=window recursive"`
	RetrievalMode string `yaml:"retrieval_mode" validate:"oneof=full top_k"`
	K             int    `yaml:"k" validate:"min=1"`
	MaxChars      int    `yaml:"max_chars" validate:"min=0"`
}

type EmbeddingConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=hash ollama openai"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions" validate:"min=0"`
}

type AnsweringConfig struct {
	// nil means "use the default message"; an explicit empty string disables it
	FallbackMessage *string          `yaml:"fallback_message"`
	Providers       []ProviderConfig `yaml:"providers" validate:"dive"`
}

type ProviderConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Kind      string `yaml:"kind" validate:"oneof=openai groq gemini cohere anthropic"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	Model     string `yaml:"model" validate:"required"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens" validate:"min=0"`
}

// ConfigurationError is raised at startup for settings the service cannot run with.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Reason: "invalid yaml in " + path, Err: err}
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and duration strings.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return &ConfigurationError{Reason: "invalid settings", Err: err}
	}
	if _, err := time.ParseDuration(cfg.Auth.TokenTTL); err != nil {
		return &ConfigurationError{Reason: "auth.token_ttl", Err: err}
	}
	seen := make(map[string]bool, len(cfg.Answering.Providers))
	for _, p := range cfg.Answering.Providers {
		if seen[p.Name] {
			return &ConfigurationError{Reason: "duplicate provider name " + p.Name}
		}
		seen[p.Name] = true
		if _, err := p.TimeoutDuration(); err != nil {
			return &ConfigurationError{Reason: "timeout of provider " + p.Name, Err: err}
		}
	}
	return nil
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			Mode:          "release",
			MaxUploadMB:   20,
			RatePerMinute: 30,
			RateBurst:     5,
		},
		Log:  LogConfig{Level: "info", Format: "console"},
		Auth: AuthConfig{JWTSecretEnv: "CURABOT_JWT_SECRET", TokenTTL: "12h"},
		Database: DatabaseConfig{
			Driver:      "pgdriver",
			DSN:         "postgres://curabot@localhost:5432/curabot?sslmode=disable",
			PasswordEnv: "CURABOT_DB_PASSWORD",
		},
		RAG: RAGConfig{
			ChunkSize:     defaultChunkSize,
			ChunkOverlap:  defaultChunkOverlap,
			Splitter:      "window",
			RetrievalMode: "top_k",
			K:             4,
			MaxChars:      12000,
		},
		Embedding: EmbeddingConfig{Backend: "hash", Dimensions: 384},
		Answering: AnsweringConfig{Providers: DefaultProviders()},
	}
	return cfg
}

// DefaultProviders lists the answer providers in priority order, with
// anthropic appended as an optional last resort.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: "openai", Kind: "openai", APIKeyEnv: "OPENAI_API_KEY", Model: "gpt-3.5-turbo", Timeout: defaultProviderTimeout},
		{Name: "groq", Kind: "groq", APIKeyEnv: "GROQ_API_KEY", Model: "llama-3.1-8b-instant", BaseURL: "https://api.groq.com/openai/v1", Timeout: defaultProviderTimeout},
		{Name: "gemini", Kind: "gemini", APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.0-flash", Timeout: defaultProviderTimeout},
		{Name: "cohere", Kind: "cohere", APIKeyEnv: "COHERE_API_KEY", Model: "command-r-plus", Timeout: defaultProviderTimeout, MaxTokens: 200},
		{Name: "anthropic", Kind: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY", Model: "claude-3-5-haiku-latest", Timeout: defaultProviderTimeout, MaxTokens: 1024},
	}
}

const (
	defaultChunkSize       = 1000
	defaultChunkOverlap    = 200
	defaultProviderTimeout = "60s"
)

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.K == 0 {
		cfg.RAG.K = 4
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "hash"
	}
	for i := range cfg.Answering.Providers {
		p := &cfg.Answering.Providers[i]
		if p.Kind == "" {
			p.Kind = p.Name
		}
		if p.Timeout == "" {
			p.Timeout = defaultProviderTimeout
		}
	}
}

// FallbackText resolves the degraded-answer message.
func (a AnsweringConfig) FallbackText() string {
	if a.FallbackMessage == nil {
		return models.DefaultFallbackMessage
	}
	return *a.FallbackMessage
}

// TimeoutDuration parses the per-call timeout.
func (p ProviderConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return time.ParseDuration(defaultProviderTimeout)
	}
	return time.ParseDuration(p.Timeout)
}

// APIKey reads the provider credential from the environment. An empty result
// disables the provider.
func (p ProviderConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
}

// TTL returns the parsed login token lifetime.
func (a AuthConfig) TTL() time.Duration {
	d, err := time.ParseDuration(a.TokenTTL)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// Secret reads the JWT signing secret from the environment.
func (a AuthConfig) Secret() string {
	return os.Getenv(a.JWTSecretEnv)
}

// Password reads the database password from the environment.
func (d DatabaseConfig) Password() string {
	if d.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(d.PasswordEnv)
}

// APIKey reads the embedding backend credential, if any.
func (e EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}
