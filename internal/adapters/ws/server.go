package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"willow-auction-engine/internal/adapters/api"
	"willow-auction-engine/internal/config"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// Server hosts the agent live feed endpoint
type Server struct {
	handler    *FeedHandler
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config     *config.Config
	Subscriber outbound.Subscriber
	API        *api.Handler
	Logger     zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	handler := NewFeedHandler(FeedHandlerParams{
		Config:     params.Config,
		Subscriber: params.Subscriber,
		Logger:     params.Logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", handler.HandleFeed)
	mux.HandleFunc("/health", handleHealth)
	if params.API != nil {
		params.API.Register(mux)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		handler:    handler,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger,
	}
}

// Start starts the feed server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting agent feed server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start feed server: %w", err)
	}

	return nil
}

// Stop gracefully stops the feed server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping agent feed server...")

	s.handler.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown feed server: %w", err)
	}

	s.logger.Info().Msg("Agent feed server stopped")
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "service": "lead-auction-feed"}`))
}
