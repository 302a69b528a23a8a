package model

import (
	"time"
)

// Reaction is the closed set of reactions a user can leave on a message.
type Reaction string

const (
	ReactionHappy      Reaction = "HAPPY"
	ReactionSad        Reaction = "SAD"
	ReactionThumbsUp   Reaction = "THUMBSUP"
	ReactionThumbsDown Reaction = "THUMBSDOWN"
	ReactionLove       Reaction = "LOVE"
)

// Reactions lists every valid reaction value.
var Reactions = []Reaction{
	ReactionHappy,
	ReactionSad,
	ReactionThumbsUp,
	ReactionThumbsDown,
	ReactionLove,
}

// Valid reports whether r is one of the known reactions.
func (r Reaction) Valid() bool {
	for _, known := range Reactions {
		if r == known {
			return true
		}
	}
	return false
}

// Message is a single post in a conversation.
//
// Deleted is a soft-delete marker: Content stays in storage but is hidden
// from clients. Reactions holds at most one reaction per user.
type Message struct {
	ID             string              `json:"id" bson:"_id"`
	ConversationID string              `json:"conversation_id" bson:"conversation_id"`
	AuthorID       string              `json:"author_id" bson:"author_id"`
	ReplyToID      string              `json:"reply_to_id,omitempty" bson:"reply_to_id,omitempty"`
	Content        string              `json:"content" bson:"content"`
	PostedAt       time.Time           `json:"posted_at" bson:"posted_at"`
	Edited         bool                `json:"edited" bson:"edited"`
	Deleted        bool                `json:"deleted" bson:"deleted"`
	Reactions      map[string]Reaction `json:"reactions" bson:"reactions"`
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	out := *m
	out.Reactions = make(map[string]Reaction, len(m.Reactions))
	for k, v := range m.Reactions {
		out.Reactions[k] = v
	}
	return &out
}

// Public returns the client-facing copy of m, with content hidden when the
// message is soft-deleted.
func (m *Message) Public() Message {
	out := *m.Clone()
	if out.Deleted {
		out.Content = ""
	}
	return out
}

// SendMessageRequest is the request to post a message.
type SendMessageRequest struct {
	Content   string `json:"content"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

// EditMessageRequest is the request to replace a message's content.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ReactRequest sets or clears the caller's reaction. An empty reaction clears it.
type ReactRequest struct {
	Reaction Reaction `json:"reaction,omitempty"`
}

// MessageRef identifies a message in responses.
type MessageRef struct {
	ID string `json:"id"`
}

// MessageResponse wraps a message reference.
type MessageResponse struct {
	Message MessageRef `json:"message"`
}

// ConversationResponse wraps a conversation reference.
type ConversationResponse struct {
	Conversation ConversationRef `json:"conversation"`
}
