package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/messaging-platform/internal/auth"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/internal/store/memory"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

type notification struct {
	Kind           string
	ConversationID string
	Event          model.EventName
	Participants   []string
	Payload        any
}

// recordingNotifier captures every call in order.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recordingNotifier) ConversationCreated(_ context.Context, conversationID string, participantIDs []string, payload any) {
	r.record(notification{Kind: "created", ConversationID: conversationID, Event: model.EventConversationCreated, Participants: participantIDs, Payload: payload})
}

func (r *recordingNotifier) Notify(_ context.Context, conversationID string, event model.EventName, payload any) {
	r.record(notification{Kind: "notify", ConversationID: conversationID, Event: event, Payload: payload})
}

func (r *recordingNotifier) CloseRoom(_ context.Context, conversationID string) {
	r.record(notification{Kind: "close", ConversationID: conversationID})
}

func (r *recordingNotifier) record(n notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, n)
}

func (r *recordingNotifier) last() notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type staticOnline []string

func (s staticOnline) OnlineUserIDs(context.Context) ([]string, error) { return s, nil }

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	users    *UserService
	convs    *ConversationService
	messages *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	n := &recordingNotifier{}
	log := logger.NewNop()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	return &fixture{
		store:    st,
		notifier: n,
		users:    NewUserService(st.Users(), tokens, nil, bcrypt.MinCost, log),
		convs:    NewConversationService(st, n, log),
		messages: NewMessageService(st, n, log),
	}
}

// addUser inserts a user directly, bypassing password hashing.
func (f *fixture) addUser(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{ID: store.NewID(), Username: name, ProfilePicID: "avatar-01"}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}

// conversation creates a conversation owned by owner with the given invitees.
func (f *fixture) conversation(t *testing.T, owner *model.User, invitees ...*model.User) *model.Conversation {
	t.Helper()
	ids := make([]string, 0, len(invitees))
	for _, u := range invitees {
		ids = append(ids, u.ID)
	}
	conv, err := f.convs.Create(context.Background(), owner.ID, &model.CreateConversationRequest{ParticipantIDs: ids})
	require.NoError(t, err)
	return conv
}

func (f *fixture) post(t *testing.T, author *model.User, conv *model.Conversation, content string) *model.Message {
	t.Helper()
	msg, err := f.convs.SendMessage(context.Background(), author.ID, conv.ID, &model.SendMessageRequest{Content: content})
	require.NoError(t, err)
	return msg
}
