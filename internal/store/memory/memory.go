// Package memory provides an in-process implementation of the store contracts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
)

// Store keeps every document in maps guarded by a single RWMutex. Documents
// are cloned on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	users       map[string]*model.User
	usersByName map[string]string
	userOrder   []string

	conversations map[string]*model.Conversation
	convOrder     []string

	messages map[string]*model.Message
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		usersByName:   make(map[string]string),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Users() store.UserStore                 { return (*userStore)(s) }
func (s *Store) Conversations() store.ConversationStore { return (*conversationStore)(s) }
func (s *Store) Messages() store.MessageStore           { return (*messageStore)(s) }

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error { return nil }

type userStore Store

func (s *userStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByName[user.Username]; taken {
		return store.ErrDuplicate
	}
	if _, taken := s.users[user.ID]; taken {
		return store.ErrDuplicate
	}

	u := *user
	s.users[u.ID] = &u
	s.usersByName[u.Username] = u.ID
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *userStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[store.CanonicalID(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *userStore) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

func (s *userStore) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[store.CanonicalID(id)]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *userStore) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, *s.users[id])
	}
	return out, nil
}

type conversationStore Store

func (s *conversationStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return store.ErrDuplicate
	}
	s.conversations[conv.ID] = conv.Clone()
	s.convOrder = append(s.convOrder, conv.ID)
	return nil
}

func (s *conversationStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[store.CanonicalID(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return conv.Clone(), nil
}

func (s *conversationStore) ListConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID = store.CanonicalID(userID)
	var out []model.Conversation
	for _, id := range s.convOrder {
		conv := s.conversations[id]
		for _, p := range conv.Participants {
			if p == userID {
				out = append(out, *conv.Clone())
				break
			}
		}
	}
	return out, nil
}

func (s *conversationStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = store.CanonicalID(id)
	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)

	for i, cid := range s.convOrder {
		if cid == id {
			s.convOrder = append(s.convOrder[:i], s.convOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *conversationStore) AppendMessage(ctx context.Context, conversationID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[store.CanonicalID(conversationID)]
	if !ok {
		return store.ErrNotFound
	}
	conv.MessageIDs = append(conv.MessageIDs, messageID)
	conv.LastActivity = at
	return nil
}

func (s *conversationStore) Touch(ctx context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[store.CanonicalID(conversationID)]
	if !ok {
		return store.ErrNotFound
	}
	conv.LastActivity = at
	return nil
}

func (s *conversationStore) SetSeen(ctx context.Context, conversationID, userID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[store.CanonicalID(conversationID)]
	if !ok {
		return store.ErrNotFound
	}
	if conv.Seen == nil {
		conv.Seen = make(map[string]string)
	}
	conv.Seen[userID] = messageID
	return nil
}

type messageStore Store

func (s *messageStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return store.ErrDuplicate
	}
	s.messages[msg.ID] = msg.Clone()
	return nil
}

func (s *messageStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[store.CanonicalID(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return msg.Clone(), nil
}

func (s *messageStore) GetMessages(ctx context.Context, ids []string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := s.messages[store.CanonicalID(id)]; ok {
			out = append(out, *msg.Clone())
		}
	}
	return out, nil
}

func (s *messageStore) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	return s.mutate(id, func(m *model.Message) {
		m.Content = content
		m.Edited = true
	})
}

func (s *messageStore) MarkDeleted(ctx context.Context, id string) (*model.Message, error) {
	return s.mutate(id, func(m *model.Message) {
		m.Deleted = true
	})
}

func (s *messageStore) SetReaction(ctx context.Context, id, userID string, reaction model.Reaction) (*model.Message, error) {
	return s.mutate(id, func(m *model.Message) {
		if m.Reactions == nil {
			m.Reactions = make(map[string]model.Reaction)
		}
		if reaction == "" {
			delete(m.Reactions, userID)
			return
		}
		m.Reactions[userID] = reaction
	})
}

func (s *messageStore) mutate(id string, fn func(*model.Message)) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[store.CanonicalID(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	fn(msg)
	return msg.Clone(), nil
}
