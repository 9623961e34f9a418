package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/auth"
	"github.com/lessonbin/quizdoc/internal/config"
)

// WSUpgrader handles WebSocket upgrades for the registry stream.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// registry updates are public read-only data
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewHTTPServer wires base routes (health, metrics) and the v1 API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, tokens *auth.TokenManager, h *Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ready":true}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Validation is a pure function; no token needed.
	mux.HandleFunc("POST /v1/documents/validate", h.ValidateDocument)

	// Mutating and read-back endpoints are for CI jobs holding a token.
	mux.HandleFunc("POST /v1/documents", auth.RequireToken(tokens, logger, h.SubmitDocument))
	mux.HandleFunc("GET /v1/documents/{id}", auth.RequireToken(tokens, logger, h.GetDocument))

	mux.HandleFunc("GET /v1/registry", h.GetRegistry)
	mux.HandleFunc("GET /ws/registry", h.HandleRegistryStream)

	mux.HandleFunc("POST /v1/tokens", h.IssueToken)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redisClient.Ping(ctx).Err()
}
