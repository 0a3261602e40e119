package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlrightyTighty/baddle-backend/internal/config"
	"github.com/AlrightyTighty/baddle-backend/internal/game"
	"github.com/AlrightyTighty/baddle-backend/internal/storage"
)

// Leaderboard serves archived results. It is nil when no database is
// configured.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]storage.LeaderboardEntry, error)
	GamesPlayed(ctx context.Context) (int, error)
}

type Server struct {
	cfg         *config.Config
	registry    *game.Registry
	leaderboard Leaderboard
	ws          http.Handler
	origins     []string
	log         zerolog.Logger
}

func NewServer(cfg *config.Config, registry *game.Registry, leaderboard Leaderboard, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		registry:    registry,
		leaderboard: leaderboard,
		origins:     cfg.AllowedOrigins(),
		log:         logger.With().Str("component", "http").Logger(),
	}
	s.ws = game.NewHandler(registry, game.HandlerConfig{
		NameLength:  cfg.NameLength,
		CheckOrigin: s.checkOrigin,
		Logger:      &logger,
	})
	return s
}

// HTTPServer builds the listener configuration for cfg.Addr().
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
}

// checkOrigin allows any origin unless CLIENT_ORIGIN lists some.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == origin {
			return true
		}
	}
	return false
}
