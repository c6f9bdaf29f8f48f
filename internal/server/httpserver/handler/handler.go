package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// ShardStatus describes one shard.
type ShardStatus struct {
	Shard      int       `json:"shard"`
	State      string    `json:"state"`
	ReadySince time.Time `json:"ready_since,omitzero"`
	Backlog    int       `json:"backlog"`
	Queue      int       `json:"queue"`
}

// Snapshot is the debug view of a running session. Counter values are
// approximate.
type Snapshot struct {
	Counters map[string]int64 `json:"counters"`
	Shards   []ShardStatus    `json:"shards"`
	Cache    any              `json:"cache,omitempty"`
	Persist  any              `json:"persist,omitempty"`
	Stats    any              `json:"stats,omitempty"`
}

// StatusSource supplies readiness and the debug snapshot.
type StatusSource interface {
	Ready() bool
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Handler serves the status endpoints.
type Handler struct {
	status StatusSource
	logger logger.Logger
	mux    *http.ServeMux
}

// New creates a Handler over status.
func New(status StatusSource, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	h := &Handler{status: status, logger: log, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /debug/counters", h.handleCounters)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(Response{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get("X-Request-ID"),
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("failed to encode response", "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = "GS-SYS-5000"
	}
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	w.Header().Set("X-Error-Code", code)
	h.writeJSON(w, r, errorCodeToHTTPStatus(code), code, err.Error(), nil)
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"), strings.HasSuffix(code, "-5031"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
