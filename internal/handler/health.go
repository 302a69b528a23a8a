package handler

import (
	"context"
	"net/http"
	"time"

	natsclient "github.com/capitalize-ai/messaging-platform/internal/nats"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store      Pinger
	natsClient *natsclient.Client
	presence   Pinger
}

// NewHealthHandler creates a new health handler. natsClient and presence are
// nil when those backends are disabled.
func NewHealthHandler(store Pinger, natsClient *natsclient.Client, presence Pinger) *HealthHandler {
	return &HealthHandler{
		store:      store,
		natsClient: natsClient,
		presence:   presence,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		notReady(w, "store unreachable")
		return
	}

	if h.natsClient != nil && !h.natsClient.IsConnected() {
		notReady(w, "NATS not connected")
		return
	}

	if h.presence != nil {
		if err := h.presence.Ping(ctx); err != nil {
			notReady(w, "redis unreachable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func notReady(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "not ready",
		"reason": reason,
	})
}
