package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/auth"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// HandlerOptions tunes the websocket transport.
type HandlerOptions struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to websocket sessions on the hub.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	opts     HandlerOptions
	origins  *OriginPolicy
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(hub *Hub, authenticator Authenticator, opts HandlerOptions, log *logger.Logger) *Handler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}

	h := &Handler{
		hub:     hub,
		auth:    authenticator,
		opts:    opts,
		origins: NewOriginPolicy(opts.AllowedOrigins),
		logger:  log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the connection and runs the session until the peer
// leaves. The token comes from the "token" query parameter or the
// Authorization header. A missing or invalid token yields an anonymous
// session rather than a rejected upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.ExtractToken(r.Header.Get("Authorization"))
	}

	var user *model.User
	if token != "" {
		u, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.logger.Debug("websocket identity not resolved", zap.Error(err))
		} else {
			user = u
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx := context.WithoutCancel(r.Context())
	sess := NewSession(h.opts.SendBuffer)
	h.hub.Connect(ctx, sess, user)

	go sess.writePump(conn, h.opts.PingInterval, h.opts.WriteTimeout)
	if err := sess.readPump(conn, h.opts.PingInterval*2); err != nil {
		h.logger.Debug("websocket closed", zap.String("session_id", sess.ID), zap.Error(err))
	}

	h.hub.Disconnect(ctx, sess)
}

// checkOrigin applies the same origin patterns as the HTTP CORS layer.
// Non-browser clients send no Origin and are let through.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.origins.Allowed(origin)
}
