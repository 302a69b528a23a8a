package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/capitalize-ai/messaging-platform/internal/model"
)

const (
	// maxMessageSize bounds inbound frames. Clients only send control frames.
	maxMessageSize = 512
)

// Session is one live connection. It starts anonymous and becomes
// identified when the hub binds it to a user.
type Session struct {
	ID string

	user *model.UserSummary
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// NewSession creates a session with a send buffer of the given size.
func NewSession(buffer int) *Session {
	return &Session{
		ID:   uuid.NewString(),
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// UserID returns the bound user, or "" for an anonymous session.
func (s *Session) UserID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops delivery to the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue hands frame to the write pump without blocking. It returns false
// when the session is closed or its buffer is full.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// writePump drains the send buffer into conn and keeps the connection alive
// with pings. It owns all writes to conn and closes it on exit.
func (s *Session) writePump(conn *websocket.Conn, pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

// readPump discards inbound data frames and returns when the peer goes
// away, stops answering pings, or the session is closed.
func (s *Session) readPump(conn *websocket.Conn, pongWait time.Duration) error {
	defer s.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return err
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return err
			}
			return nil
		}
	}
}
