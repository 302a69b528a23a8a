package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
)

const (
	maxContentLength = 10000
	maxTitleLength   = 256
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperror.Validation("content cannot be empty")
	}
	if len(content) > maxContentLength {
		return apperror.Validation("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return apperror.Validation("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates a document identifier taken from a path or body.
func ValidateID(kind, id string) error {
	if !store.ValidID(id) {
		return apperror.Validation("invalid " + kind + " id")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > maxTitleLength {
		return apperror.Validation("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return apperror.Validation("title must be valid UTF-8")
	}
	return nil
}
