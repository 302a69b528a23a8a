// Package guard answers membership and authorship questions.
//
// Every identifier is canonicalized before comparison so that differently
// cased or padded forms of the same id are treated as equal.
package guard

import (
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
)

// IsParticipant reports whether userID is a member of conv.
func IsParticipant(userID string, conv *model.Conversation) bool {
	if conv == nil || userID == "" {
		return false
	}
	want := store.CanonicalID(userID)
	for _, p := range conv.Participants {
		if store.CanonicalID(p) == want {
			return true
		}
	}
	return false
}

// IsAuthor reports whether userID wrote msg.
func IsAuthor(userID string, msg *model.Message) bool {
	if msg == nil || userID == "" {
		return false
	}
	return store.CanonicalID(msg.AuthorID) == store.CanonicalID(userID)
}

// RequireParticipant fails with an unauthorized error unless userID is a member of conv.
func RequireParticipant(userID string, conv *model.Conversation) error {
	if !IsParticipant(userID, conv) {
		return apperror.Unauthorized("you are not a participant of this conversation")
	}
	return nil
}

// RequireAuthor fails with an unauthorized error unless userID wrote msg.
func RequireAuthor(userID string, msg *model.Message) error {
	if !IsAuthor(userID, msg) {
		return apperror.Unauthorized("you are not the author of this message")
	}
	return nil
}
