package httpserver

import (
	"net/http"

	"github.com/yndnr/guildsync/internal/server/httpserver/handler"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics serves /metrics, usually metric.Store.Handler().
	Metrics http.Handler

	// Status backs /ready and /debug/counters.
	Status handler.StatusSource

	Logger logger.Logger

	// RateLimit is the per client request rate. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter creates the HTTP router with all routes and middleware.
// Order: Recover -> RequestID -> RateLimit -> AccessLog -> handler.
// /health is never rate limited.
func NewRouter(cfg *RouterConfig) (http.Handler, *RateLimiter) {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	h := handler.New(cfg.Status, log)

	base := []Middleware{Recover(log), RequestID()}
	limited := base
	var rl *RateLimiter
	if cfg.RateLimit > 0 {
		rl = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		limited = append(append([]Middleware{}, base...), rl.Middleware())
	}
	limited = append(limited, AccessLog(log))

	mux := http.NewServeMux()
	mux.Handle("GET /health", Chain(h, base...))
	mux.Handle("GET /ready", Chain(h, limited...))
	mux.Handle("GET /debug/counters", Chain(h, limited...))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, limited...))
	}
	return mux, rl
}
