// Package realtime mirrors accepted mutations to live client connections.
//
// A Hub tracks every open Session, the user each identified session belongs
// to, and one room per conversation. Mutations are turned into Envelopes and
// handed to a Broker, which brings them back to Apply on every instance.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
	"github.com/capitalize-ai/messaging-platform/pkg/metrics"
)

// Presence mirrors session bindings into a shared store so that other
// instances can see who is online. Entries lapse unless refreshed, so
// Refresh must be called periodically for every live binding.
type Presence interface {
	SetOnline(ctx context.Context, userID, sessionID string) error
	SetOffline(ctx context.Context, userID, sessionID string) error
	// Refresh extends the entry and reports false if it no longer names sessionID.
	Refresh(ctx context.Context, userID, sessionID string) (bool, error)
}

// closedRetention is how long a deleted conversation's room keeps refusing
// joins. It only has to outlast a Connect that listed the conversation
// just before it was deleted.
const closedRetention = 5 * time.Minute

// frame is the wire format of a server-pushed event.
type frame struct {
	Event model.EventName `json:"event"`
	Data  json.RawMessage `json:"data"`
	Seq   uint64          `json:"seq"`
}

// Hub is the fan-out hub.
type Hub struct {
	convs    store.ConversationStore
	registry *SessionRegistry
	broker   Broker
	presence Presence
	logger   *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
	joined   map[string]map[string]struct{}
	closed   map[string]time.Time

	seq atomic.Uint64
	now func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithBroker routes envelopes through b instead of applying them in-process.
func WithBroker(b Broker) Option {
	return func(h *Hub) { h.broker = b }
}

// WithPresence mirrors bindings into p.
func WithPresence(p Presence) Option {
	return func(h *Hub) { h.presence = p }
}

// NewHub creates a hub that resolves room membership from convs.
func NewHub(convs store.ConversationStore, registry *SessionRegistry, log *logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		convs:    convs,
		registry: registry,
		logger:   log,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		joined:   make(map[string]map[string]struct{}),
		closed:   make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.broker == nil {
		h.broker = NewLocalBroker(h.Apply)
	}
	return h
}

// Registry returns the session registry.
func (h *Hub) Registry() *SessionRegistry {
	return h.registry
}

// Connect registers sess. A nil user leaves the session open but inert: it
// joins no rooms and receives no events. Otherwise the session becomes the
// user's live session, joins a room per conversation of the user, and the
// other sessions are told the user is online.
func (h *Hub) Connect(ctx context.Context, sess *Session, user *model.User) {
	if user != nil {
		summary := user.Summary()
		summary.ID = store.CanonicalID(summary.ID)
		sess.user = &summary
	}

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()
	metrics.IncrementConnections()

	if user == nil {
		h.logger.Debug("anonymous session connected", zap.String("session_id", sess.ID))
		return
	}

	userID := sess.UserID()
	log := h.logger.WithSession(sess.ID, userID)

	if previous, replaced := h.registry.Bind(userID, sess.ID); replaced {
		// The superseded connection stays open but stops receiving events.
		h.mu.Lock()
		h.leaveAllLocked(previous)
		h.mu.Unlock()
		log.Debug("session superseded", zap.String("previous_session_id", previous))
	}
	metrics.RealtimeUsersOnline.Set(float64(h.registry.Len()))

	convs, err := h.convs.ListConversationsForUser(ctx, userID)
	if err != nil {
		log.Warn("failed to load conversations for session", zap.Error(err))
	}
	h.mu.Lock()
	for i := range convs {
		h.joinLocked(convs[i].ID, sess)
	}
	h.mu.Unlock()

	h.sendTo(sess, model.EventReady, model.ReadyEvent{SessionID: sess.ID, UserID: userID})

	if h.presence != nil {
		if err := h.presence.SetOnline(ctx, userID, sess.ID); err != nil {
			log.Warn("failed to record presence", zap.Error(err))
		}
	}

	log.Info("session connected", zap.Int("rooms", len(convs)))
	h.publish(ctx, model.EventUserOnline, &Envelope{Exclude: sess.ID}, model.UserEvent{User: *sess.user})
}

// Disconnect unregisters sess. The user goes offline only if sess is still
// their live session.
func (h *Hub) Disconnect(ctx context.Context, sess *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[sess.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, sess.ID)
	h.leaveAllLocked(sess.ID)
	h.mu.Unlock()

	sess.Close()
	metrics.DecrementConnections()

	userID := sess.UserID()
	if userID == "" || !h.registry.Unbind(userID, sess.ID) {
		return
	}
	metrics.RealtimeUsersOnline.Set(float64(h.registry.Len()))

	if h.presence != nil {
		if err := h.presence.SetOffline(ctx, userID, sess.ID); err != nil {
			h.logger.Warn("failed to clear presence", zap.String("user_id", userID), zap.Error(err))
		}
	}

	h.logger.Info("session disconnected", zap.String("session_id", sess.ID), zap.String("user_id", userID))
	h.publish(ctx, model.EventUserOffline, &Envelope{Exclude: sess.ID}, model.UserEvent{User: *sess.user})
}

// ConversationCreated joins the live sessions of participantIDs to the new
// room and then emits conversation-created to it.
func (h *Hub) ConversationCreated(ctx context.Context, conversationID string, participantIDs []string, payload any) {
	env := &Envelope{Room: conversationID, Join: participantIDs}
	excludeOrigin(ctx, env)
	h.publish(ctx, model.EventConversationCreated, env, payload)
}

// Notify emits event to the room of conversationID, skipping the session
// that triggered the mutation.
func (h *Hub) Notify(ctx context.Context, conversationID string, event model.EventName, payload any) {
	env := &Envelope{Room: conversationID}
	excludeOrigin(ctx, env)
	h.publish(ctx, event, env, payload)
}

// excludeOrigin skips the originating session, provided it belongs to the
// requesting user. Ownership is checked where the session lives, in deliver.
func excludeOrigin(ctx context.Context, env *Envelope) {
	if o, ok := OriginFromContext(ctx); ok {
		env.Exclude = o.SessionID
		env.ExcludeUser = o.UserID
	}
}

// CloseRoom discards the room of conversationID.
func (h *Hub) CloseRoom(ctx context.Context, conversationID string) {
	h.publish(ctx, "", &Envelope{Room: conversationID, Close: true}, nil)
}

func (h *Hub) publish(ctx context.Context, event model.EventName, env *Envelope, payload any) {
	env.Event = event
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Warn("failed to encode event", zap.String("event", string(event)), zap.Error(err))
			return
		}
		env.Payload = data
	}

	if err := h.broker.Publish(ctx, env); err != nil {
		// Fall back to local delivery so this instance's clients stay current.
		metrics.FanoutPublishErrors.Inc()
		h.logger.Warn("failed to publish event",
			zap.String("event", string(event)),
			zap.String("room", env.Room),
			zap.Error(err),
		)
		h.Apply(env)
	}
}

// Apply executes env against the local sessions.
func (h *Hub) Apply(env *Envelope) {
	if env.Room != "" && len(env.Join) > 0 {
		h.joinUsers(env.Room, env.Join)
	}
	if env.Event != "" {
		h.deliver(env)
	}
	if env.Close && env.Room != "" {
		h.closeRoom(env.Room)
	}
}

func (h *Hub) joinUsers(room string, userIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userID := range userIDs {
		sessionID, ok := h.registry.Lookup(store.CanonicalID(userID))
		if !ok {
			continue
		}
		if sess, ok := h.sessions[sessionID]; ok {
			h.joinLocked(room, sess)
		}
	}
}

func (h *Hub) deliver(env *Envelope) {
	data, err := json.Marshal(frame{Event: env.Event, Data: env.Payload, Seq: h.seq.Add(1)})
	if err != nil {
		h.logger.Warn("failed to encode frame", zap.String("event", string(env.Event)), zap.Error(err))
		return
	}

	h.mu.RLock()
	var targets []*Session
	if env.Room == "" {
		for _, sess := range h.sessions {
			if !excluded(env, sess) && h.isLive(sess) {
				targets = append(targets, sess)
			}
		}
	} else if _, closed := h.closed[env.Room]; !closed {
		for _, sess := range h.rooms[env.Room] {
			if !excluded(env, sess) {
				targets = append(targets, sess)
			}
		}
	}
	h.mu.RUnlock()

	for _, sess := range targets {
		if !sess.enqueue(data) {
			// Slow consumer: drop it rather than block the fan-out.
			metrics.FanoutDroppedTotal.Inc()
			h.logger.Warn("dropping slow session",
				zap.String("session_id", sess.ID),
				zap.String("user_id", sess.UserID()),
				zap.String("event", string(env.Event)),
			)
			sess.Close()
		}
	}
	metrics.RecordFanout(string(env.Event))
}

func excluded(env *Envelope, sess *Session) bool {
	if env.Exclude == "" || sess.ID != env.Exclude {
		return false
	}
	return env.ExcludeUser == "" || sess.UserID() == env.ExcludeUser
}

func (h *Hub) closeRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for id, at := range h.closed {
		if now.Sub(at) > closedRetention {
			delete(h.closed, id)
		}
	}
	h.closed[room] = now
	for sessionID := range h.rooms[room] {
		delete(h.joined[sessionID], room)
	}
	delete(h.rooms, room)
}

// sendTo delivers one event to a single session, outside any room.
func (h *Hub) sendTo(sess *Session, event model.EventName, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	out, err := json.Marshal(frame{Event: event, Data: data, Seq: h.seq.Add(1)})
	if err != nil {
		return
	}
	sess.enqueue(out)
}

// isLive reports whether sess is the current binding of its user.
func (h *Hub) isLive(sess *Session) bool {
	userID := sess.UserID()
	if userID == "" {
		return false
	}
	current, ok := h.registry.Lookup(userID)
	return ok && current == sess.ID
}

func (h *Hub) joinLocked(room string, sess *Session) {
	if _, closed := h.closed[room]; closed {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		h.rooms[room] = members
	}
	members[sess.ID] = sess

	rooms, ok := h.joined[sess.ID]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[sess.ID] = rooms
	}
	rooms[room] = struct{}{}
}

func (h *Hub) leaveAllLocked(sessionID string) {
	for room := range h.joined[sessionID] {
		if members, ok := h.rooms[room]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.joined, sessionID)
}

// Rooms returns the rooms sess has joined.
func (h *Hub) Rooms(sess *Session) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.joined[sess.ID]))
	for room := range h.joined[sess.ID] {
		out = append(out, room)
	}
	return out
}

// Close closes every session. Used during shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sess := range h.sessions {
		sess.Close()
	}
}

// Shutdown closes every session and waits until each one has gone through
// Disconnect, so presence is cleared before the caller tears down its
// backends. It returns ctx.Err() if sessions are still open when ctx ends.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.Close()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		h.mu.RLock()
		open := len(h.sessions)
		h.mu.RUnlock()
		if open == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			h.logger.Warn("sessions still open at shutdown", zap.Int("sessions", open))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// KeepPresence refreshes the presence entry of every live binding each
// interval until ctx ends. It returns at once when no Presence is set.
func (h *Hub) KeepPresence(ctx context.Context, interval time.Duration) {
	if h.presence == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshPresence(ctx)
		}
	}
}

func (h *Hub) refreshPresence(ctx context.Context) {
	for userID, sessionID := range h.registry.Bindings() {
		ok, err := h.presence.Refresh(ctx, userID, sessionID)
		if err != nil {
			h.logger.Warn("failed to refresh presence", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if ok {
			continue
		}
		// The entry lapsed while the session stayed up here; write it again
		// unless the binding moved on in the meantime.
		if current, bound := h.registry.Lookup(userID); !bound || current != sessionID {
			continue
		}
		if err := h.presence.SetOnline(ctx, userID, sessionID); err != nil {
			h.logger.Warn("failed to restore presence", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
