package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/messaging-platform/internal/config"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// tokenAuth treats the token as a username.
type tokenAuth map[string]*model.User

func (a tokenAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if u, ok := a[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	return dialWithHeader(t, srv, query, nil)
}

func dialWithHeader(t *testing.T, srv *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), header)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestWebsocketSession(t *testing.T) {
	f := newHubFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	convID := f.conversation(t, alice, bob)

	handler := NewHandler(f.hub, tokenAuth{"alice-token": alice, "bob-token": bob}, HandlerOptions{
		PingInterval: time.Second,
		WriteTimeout: time.Second,
		SendBuffer:   8,
	}, logger.NewNop())

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	aliceConn := dial(t, srv, "?token=alice-token")
	ready := readFrame(t, aliceConn)
	require.Equal(t, model.EventReady, ready.Event)

	var r model.ReadyEvent
	require.NoError(t, json.Unmarshal(ready.Data, &r))
	assert.Equal(t, alice.ID, r.UserID)
	assert.NotEmpty(t, r.SessionID)

	bobConn := dial(t, srv, "?token=bob-token")
	assert.Equal(t, model.EventReady, readFrame(t, bobConn).Event)
	assert.Equal(t, model.EventUserOnline, readFrame(t, aliceConn).Event)

	f.hub.Notify(WithOrigin(context.Background(), alice.ID, r.SessionID), convID, model.EventMessageCreated, model.MessageEvent{})
	assert.Equal(t, model.EventMessageCreated, readFrame(t, bobConn).Event)

	require.NoError(t, bobConn.Close())
	assert.Equal(t, model.EventUserOffline, readFrame(t, aliceConn).Event)
}

func TestWebsocketInvalidTokenStaysOpen(t *testing.T) {
	f := newHubFixture(t)
	handler := NewHandler(f.hub, tokenAuth{}, HandlerOptions{PingInterval: time.Second}, logger.NewNop())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dial(t, srv, "?token=bogus")

	require.Eventually(t, func() bool {
		f.hub.mu.RLock()
		defer f.hub.mu.RUnlock()
		return len(f.hub.sessions) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.hub.Registry().Len())

	// The connection is still usable: pings are answered by the server pump.
	require.NoError(t, conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)))
}

func TestWebsocketOriginDefaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := config.Load()

	f := newHubFixture(t)
	alice := f.user(t, "alice")
	handler := NewHandler(f.hub, tokenAuth{"alice-token": alice}, HandlerOptions{
		PingInterval:   time.Second,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger.NewNop())

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, origin := range []string{"https://chat.example.com", "http://localhost:3000"} {
		conn := dialWithHeader(t, srv, "?token=alice-token", http.Header{"Origin": {origin}})
		assert.Equal(t, model.EventReady, readFrame(t, conn).Event, origin)
		require.NoError(t, conn.Close())
	}
}

func TestWebsocketRejectsUnlistedOrigin(t *testing.T) {
	f := newHubFixture(t)
	handler := NewHandler(f.hub, tokenAuth{}, HandlerOptions{
		PingInterval:   time.Second,
		AllowedOrigins: []string{"https://app.example.com", "https://*.example.org"},
	}, logger.NewNop())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), http.Header{"Origin": {"https://evil.example.net"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialWithHeader(t, srv, "", http.Header{"Origin": {"https://team.example.org"}})
	require.NoError(t, conn.Close())
}
