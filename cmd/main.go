package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"curabot/internal/account"
	"curabot/internal/auth"
	"curabot/internal/config"
	"curabot/internal/db"
	"curabot/internal/embedding"
	"curabot/internal/llmservice"
	"curabot/internal/models"
	"curabot/internal/parser"
	"curabot/internal/rag"
	"curabot/internal/server"
	"curabot/internal/session"
)

const (
	configFilePath = "./configs/config.yaml"
	sweepInterval  = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a PDF report to ask about")
	query := flag.String("query", "", "Question to be answered")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := config.LoadEnv(); err != nil {
		log.Fatal().Err(err).Msg("Error loading .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, answering := buildEngine(ctx, cfg)

	if *filePath != "" && *query == "" {
		log.Fatal().Msg("Please provide a question with -query when using -file")
	}
	if *query != "" {
		askOnce(ctx, engine, *filePath, *query)
		return
	}

	serve(ctx, cfg, engine, answering)
}

func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*rag.RAG, *llmservice.Service) {
	p, err := parser.NewParser(&cfg.RAG)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing parser")
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	providers := llmservice.NewProviders(ctx, cfg.Answering.Providers)
	answering, err := llmservice.NewService(providers, cfg.Answering.FallbackText())
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing answering service")
	}

	return rag.NewRAG(p, embedder, rag.NewAssembler(&cfg.RAG), answering), answering
}

// askOnce answers a single question from the command line, about a report
// when filePath is set and as a general question otherwise
func askOnce(ctx context.Context, engine *rag.RAG, filePath, query string) {
	var response *models.PromptResponse
	if filePath == "" {
		response = engine.Ask(ctx, query)
	} else {
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading report")
		}
		idx, err := engine.IndexReport(ctx, data)
		if err != nil {
			log.Fatal().Err(err).Msg("Error indexing report")
		}
		defer idx.Close()

		response, err = engine.Query(ctx, idx, query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error querying")
		}
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Str("provider", response.Provider).Bool("degraded", response.Degraded).Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func serve(ctx context.Context, cfg *config.Config, engine *rag.RAG, answering *llmservice.Service) {
	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	dbInstance := db.NewDB(dbClient, cfg.Database.Debug)
	defer dbInstance.Close()

	if err := db.InitDB(ctx, dbInstance); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret(), cfg.Auth.TTL())
	if err != nil {
		log.Fatal().Err(err).Str("env", cfg.Auth.JWTSecretEnv).Msg("Error initializing token manager")
	}

	sessions := session.NewRegistry(cfg.Server.RatePerMinute, cfg.Server.RateBurst)
	go sessions.Run(ctx, sweepInterval)

	accounts := account.NewService(db.NewUserStore(dbInstance), tokens, sessions)
	srv := server.New(&cfg.Server, engine, accounts, tokens, sessions, answering.Enabled())
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server stopped")
	}
}
