package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"curabot/internal/account"
	"curabot/internal/auth"
	"curabot/internal/config"
	"curabot/internal/models"
	"curabot/internal/rag"
	"curabot/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the assistant over HTTP
type Server struct {
	cfg       *config.ServerConfig
	rag       *rag.RAG
	accounts  *account.Service
	tokens    *auth.TokenManager
	sessions  *session.Registry
	providers []string
}

func New(cfg *config.ServerConfig, engine *rag.RAG, accounts *account.Service, tokens *auth.TokenManager, sessions *session.Registry, providers []string) *Server {
	return &Server{
		cfg:       cfg,
		rag:       engine,
		accounts:  accounts,
		tokens:    tokens,
		sessions:  sessions,
		providers: providers,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	if s.cfg.Mode != "" {
		gin.SetMode(s.cfg.Mode)
	}
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/signup", s.signUp)
		authGroup.POST("/login", s.login)
		authGroup.POST("/logout", AuthMiddleware(s.tokens, s.sessions), s.logout)

		authed := api.Group("/")
		authed.Use(AuthMiddleware(s.tokens, s.sessions), RateLimitMiddleware())
		{
			authed.GET("/profile", s.profile)

			authed.POST("/general/ask", s.askGeneral)
			authed.GET("/general/history", s.history(models.ModeGeneral))

			authed.POST("/reports", s.uploadReport)
			authed.POST("/reports/ask", s.askReport)
			authed.GET("/reports/history", s.history(models.ModeReport))

			authed.GET("/history/:mode/export", s.exportHistory)
		}
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
