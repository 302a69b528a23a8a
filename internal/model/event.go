package model

// EventName names a realtime event pushed to clients.
type EventName string

const (
	EventConversationCreated     EventName = "conversation-created"
	EventConversationDeleted     EventName = "conversation-deleted"
	EventConversationSeenUpdated EventName = "conversation-seen-updated"
	EventMessageCreated          EventName = "message-created"
	EventMessageEdited           EventName = "message-edited"
	EventMessageReactionChanged  EventName = "message-reaction-changed"
	EventMessageDeleted          EventName = "message-deleted"
	EventUserOnline              EventName = "user-online"
	EventUserOffline             EventName = "user-offline"

	// EventReady is sent once to a freshly identified session.
	EventReady EventName = "ready"
)

// ConversationEvent is the payload of conversation-* events.
type ConversationEvent struct {
	Conversation any `json:"conversation"`
}

// MessageEvent is the payload of message-* events.
type MessageEvent struct {
	Message Message `json:"message"`
}

// UserEvent is the payload of user-online and user-offline.
type UserEvent struct {
	User UserSummary `json:"user"`
}

// ReadyEvent tells a client which session it owns.
type ReadyEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SeenEvent is the payload of conversation-seen-updated.
type SeenEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	MessageID      string `json:"message_id"`
}
