package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

type stubStatus struct {
	ready bool
	snap  Snapshot
	err   error
}

func (s stubStatus) Ready() bool { return s.ready }

func (s stubStatus) Snapshot(context.Context) (Snapshot, error) { return s.snap, s.err }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(New(nil, logger.Nop()), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		status StatusSource
		want   int
	}{
		{"no session", nil, http.StatusServiceUnavailable},
		{"hydrating", stubStatus{ready: false}, http.StatusServiceUnavailable},
		{"ready", stubStatus{ready: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(New(tt.status, logger.Nop()), "/ready"); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCounters(t *testing.T) {
	snap := Snapshot{
		Counters: map[string]int64{"users": -2, "guilds": 1},
		Shards:   []ShardStatus{{Shard: 0, State: "ready", Backlog: 0, Queue: 1}},
	}
	rec := serve(New(stubStatus{snap: snap}, logger.Nop()), "/debug/counters")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Code string   `json:"code"`
		Data Snapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "OK" || resp.Data.Counters["users"] != -2 || len(resp.Data.Shards) != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestCounters_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"closed", domain.ErrPersistClosed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(New(stubStatus{err: tt.err}, logger.Nop()), "/debug/counters")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Error-Code") == "" {
				t.Fatal("missing X-Error-Code")
			}
		})
	}
}
