// Package store defines the persistence contracts for users, conversations
// and messages. Implementations live in sub-packages.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/capitalize-ai/messaging-platform/internal/model"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByName(ctx context.Context, username string) (*model.User, error)
	// GetUsersByIDs returns the users that exist among ids, in the order of ids.
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	// AppendMessage appends messageID to the message list and sets the
	// last-activity timestamp.
	AppendMessage(ctx context.Context, conversationID, messageID string, at time.Time) error
	// Touch sets the last-activity timestamp.
	Touch(ctx context.Context, conversationID string, at time.Time) error
	// SetSeen upserts the seen pointer of userID.
	SetSeen(ctx context.Context, conversationID, userID, messageID string) error
}

// MessageStore persists messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	// GetMessages returns the messages that exist among ids, in the order of ids.
	GetMessages(ctx context.Context, ids []string) ([]model.Message, error)
	// UpdateContent replaces the content and marks the message edited.
	UpdateContent(ctx context.Context, id, content string) (*model.Message, error)
	// MarkDeleted sets the soft-delete flag. Content is retained.
	MarkDeleted(ctx context.Context, id string) (*model.Message, error)
	// SetReaction upserts the reaction of userID. An empty reaction removes it.
	SetReaction(ctx context.Context, id, userID string, reaction model.Reaction) (*model.Message, error)
}

// Store bundles the three stores of one backend.
type Store interface {
	Users() UserStore
	Conversations() ConversationStore
	Messages() MessageStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh document identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a syntactically valid document identifier.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// CanonicalID returns the comparable form of id. Valid identifiers are
// normalized to lower-case hex; anything else is returned trimmed.
func CanonicalID(id string) string {
	if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id)); err == nil {
		return oid.Hex()
	}
	return strings.TrimSpace(id)
}
