// Package api provides the HTTP surface for TradeSwarm: analysis over
// REST, node-completion streaming over WebSocket, and health/config
// introspection.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tradeswarm/tradeswarm/internal/agent"
	"github.com/tradeswarm/tradeswarm/internal/config"
	"github.com/tradeswarm/tradeswarm/internal/datasource"
	"github.com/tradeswarm/tradeswarm/internal/graph"
	"github.com/tradeswarm/tradeswarm/internal/llm"
)

// Server is the HTTP API server. When the swarm fails to initialize at
// startup (typically no API keys configured) the server still comes up
// degraded: health reports it and analyze requests return the failure.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	agentCfg agent.Config
	swarm    *agent.Swarm
	initErr  error
	wsHub    *WSHub
	log      zerolog.Logger
}

// DefaultAgentConfig builds the swarm dependencies from configuration.
// The datasources are always constructed; a missing provider is
// reported through the error so the caller can start degraded.
func DefaultAgentConfig(cfg *config.Config, logger zerolog.Logger) (agent.Config, error) {
	cacheTTL := time.Duration(cfg.Data.CacheTTL) * time.Second

	agentCfg := agent.Config{
		Market:      datasource.NewYahooMarket(cacheTTL, cfg.Data.RatePerMinute),
		News:        datasource.NewGoogleNews(cacheTTL),
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		HistoryDays: cfg.Data.HistoryDays,
		NewsLimit:   cfg.Data.NewsLimit,
		Logger:      logger,
	}

	registry, err := llm.NewRegistryFromConfig(cfg)
	if err != nil {
		return agentCfg, err
	}
	provider, err := registry.Primary()
	if err != nil {
		return agentCfg, err
	}
	agentCfg.Provider = provider
	return agentCfg, nil
}

// NewServer creates a configured API server with all routes and
// middleware.
func NewServer(cfg *config.Config, logger zerolog.Logger) *Server {
	agentCfg, err := DefaultAgentConfig(cfg, logger)
	return newServer(cfg, agentCfg, err, logger)
}

func newServer(cfg *config.Config, agentCfg agent.Config, initErr error, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		agentCfg: agentCfg,
		initErr:  initErr,
		wsHub:    NewWSHub(logger),
		log:      logger,
	}

	if s.initErr == nil {
		swarm, err := agent.NewSwarm(agentCfg)
		if err != nil {
			s.initErr = err
		} else {
			s.swarm = swarm
		}
	}
	if s.initErr != nil {
		s.log.Warn().Err(s.initErr).Msg("starting degraded: analysis graph not initialized")
	}

	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down api server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/models", s.handleModels)
		r.Get("/config/keys", s.handleConfigKeys)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze. APIKey, when
// set, overrides the configured provider credentials for this request.
type AnalyzeRequest struct {
	Query  string `json:"query"`
	APIKey string `json:"api_key,omitempty"`
}

// AnalyzeResponse is the flattened final state of an analysis run.
type AnalyzeResponse struct {
	Query               string `json:"query"`
	Ticker              string `json:"ticker"`
	TechnicalAnalysis   string `json:"technical_analysis"`
	FundamentalAnalysis string `json:"fundamental_analysis"`
	SentimentAnalysis   string `json:"sentiment_analysis"`
	RiskAnalysis        string `json:"risk_analysis"`
	FinalRecommendation string `json:"final_recommendation"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.swarm == nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":            status,
			"graph_initialized": s.swarm != nil,
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	swarm, err := s.swarmFor(req.APIKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("graph failed to initialize: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Stream so websocket clients see each node as it completes; the
	// HTTP response carries the final merged state.
	var final graph.TradingState
	for ev := range swarm.Stream(ctx, req.Query) {
		if ev.Err != nil {
			writeError(w, http.StatusInternalServerError, ev.Err.Error())
			return
		}
		final = ev.State
		s.wsHub.Broadcast(WSMessage{
			Type: "node_completed",
			Data: map[string]any{
				"node":   ev.Node,
				"ticker": ev.State.Ticker,
			},
		})
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]any{"ticker": final.Ticker},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: AnalyzeResponse{
			Query:               req.Query,
			Ticker:              final.Ticker,
			TechnicalAnalysis:   final.TechnicalAnalysis,
			FundamentalAnalysis: final.FundamentalAnalysis,
			SentimentAnalysis:   final.SentimentAnalysis,
			RiskAnalysis:        final.RiskAnalysis,
			FinalRecommendation: final.FinalRecommendation,
		},
	})
}

// swarmFor returns the startup swarm, or builds a one-off swarm around
// a request-supplied API key.
func (s *Server) swarmFor(apiKey string) (*agent.Swarm, error) {
	if apiKey == "" {
		if s.swarm == nil {
			return nil, s.initErr
		}
		return s.swarm, nil
	}

	provider, err := llm.NewProviderForKey(s.cfg, apiKey)
	if err != nil {
		return nil, err
	}
	agentCfg := s.agentCfg
	agentCfg.Provider = provider
	return agent.NewSwarm(agentCfg)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.swarm == nil {
		writeError(w, http.StatusServiceUnavailable, "no provider configured")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"provider": s.agentCfg.Provider.Name(),
			"models":   s.agentCfg.Provider.Models(),
		},
	})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
