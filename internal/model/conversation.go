// Package model defines data structures for the messaging platform.
package model

import (
	"time"
)

// Conversation is a multi-party thread.
//
// Participants keep invite order and never contain duplicates. MessageIDs is
// append-only and chronological. Seen maps a participant id to the last
// message id that participant acknowledged.
type Conversation struct {
	ID           string            `json:"id" bson:"_id"`
	Title        string            `json:"title" bson:"title"`
	LastActivity time.Time         `json:"last_activity" bson:"last_activity"`
	Participants []string          `json:"participants" bson:"participants"`
	MessageIDs   []string          `json:"message_ids" bson:"message_ids"`
	Seen         map[string]string `json:"seen" bson:"seen"`
}

// Clone returns a deep copy of c.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.MessageIDs = append([]string(nil), c.MessageIDs...)
	out.Seen = make(map[string]string, len(c.Seen))
	for k, v := range c.Seen {
		out.Seen[k] = v
	}
	return &out
}

// ConversationView is the denormalized conversation returned to clients.
type ConversationView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	LastActivity time.Time         `json:"last_activity"`
	Participants []UserSummary     `json:"participants"`
	Messages     []Message         `json:"messages"`
	Seen         map[string]string `json:"seen"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
	Title          string   `json:"title,omitempty"`
}

// ConversationRef identifies a conversation in responses.
type ConversationRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
}

// MarkSeenRequest is the body of POST /conversations/see/:id.
type MarkSeenRequest struct {
	MessageID string `json:"message_id"`
}
