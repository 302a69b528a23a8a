package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/guard"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
	"github.com/capitalize-ai/messaging-platform/pkg/metrics"
)

// MessageService handles edits, reactions and deletions of existing messages.
type MessageService struct {
	convs    store.ConversationStore
	messages store.MessageStore
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewMessageService creates a new message service. A nil notifier disables
// realtime delivery.
func NewMessageService(st store.Store, notifier Notifier, log *logger.Logger) *MessageService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &MessageService{
		convs:    st.Conversations(),
		messages: st.Messages(),
		notifier: notifier,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Edit replaces the content of a message. Only the author may edit.
func (s *MessageService) Edit(ctx context.Context, requesterID, messageID, content string) (msg *model.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService.Edit")
	defer func() { endSpan(span, err) }()

	msg, err = s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireAuthor(requesterID, msg); err != nil {
		return nil, err
	}
	if _, err := s.parent(ctx, msg); err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, apperror.Validation("the message has been deleted")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperror.Validation("content cannot be empty")
	}

	msg, err = s.messages.UpdateContent(ctx, msg.ID, content)
	if err != nil {
		return nil, notFoundOr(err, apperror.NotFound("message not found"), "failed to edit message")
	}
	if err := s.touch(ctx, msg); err != nil {
		return nil, err
	}

	metrics.RecordMessageOp("edit")
	s.logger.Info("message edited",
		zap.String("conversation_id", msg.ConversationID),
		zap.String("message_id", msg.ID),
		zap.String("user_id", requesterID),
	)

	s.notifier.Notify(ctx, msg.ConversationID, model.EventMessageEdited, model.MessageEvent{Message: msg.Public()})
	return msg, nil
}

// React sets the requester's reaction on a message, or clears it when
// reaction is empty. Any participant of the parent conversation may react.
func (s *MessageService) React(ctx context.Context, requesterID, messageID string, reaction model.Reaction) (msg *model.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService.React")
	defer func() { endSpan(span, err) }()

	msg, err = s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.parent(ctx, msg)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireParticipant(requesterID, conv); err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, apperror.Validation("the message has been deleted")
	}
	if reaction != "" && !reaction.Valid() {
		return nil, apperror.Validation("invalid reaction")
	}

	msg, err = s.messages.SetReaction(ctx, msg.ID, store.CanonicalID(requesterID), reaction)
	if err != nil {
		return nil, notFoundOr(err, apperror.NotFound("message not found"), "failed to update reaction")
	}
	if err := s.touch(ctx, msg); err != nil {
		return nil, err
	}

	metrics.RecordMessageOp("react")
	s.logger.Debug("message reaction changed",
		zap.String("message_id", msg.ID),
		zap.String("user_id", requesterID),
		zap.String("reaction", string(reaction)),
	)

	s.notifier.Notify(ctx, msg.ConversationID, model.EventMessageReactionChanged, model.MessageEvent{Message: msg.Public()})
	return msg, nil
}

// Delete soft-deletes a message. Only the author may delete. The content is
// kept in storage; deleting twice is a no-op.
func (s *MessageService) Delete(ctx context.Context, requesterID, messageID string) (msg *model.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService.Delete")
	defer func() { endSpan(span, err) }()

	msg, err = s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireAuthor(requesterID, msg); err != nil {
		return nil, err
	}
	if _, err := s.parent(ctx, msg); err != nil {
		return nil, err
	}
	if msg.Deleted {
		return msg, nil
	}

	msg, err = s.messages.MarkDeleted(ctx, msg.ID)
	if err != nil {
		return nil, notFoundOr(err, apperror.NotFound("message not found"), "failed to delete message")
	}
	if err := s.touch(ctx, msg); err != nil {
		return nil, err
	}

	metrics.RecordMessageOp("delete")
	s.logger.Info("message deleted",
		zap.String("conversation_id", msg.ConversationID),
		zap.String("message_id", msg.ID),
		zap.String("user_id", requesterID),
	)

	s.notifier.Notify(ctx, msg.ConversationID, model.EventMessageDeleted, model.MessageEvent{Message: msg.Public()})
	return msg, nil
}

func (s *MessageService) load(ctx context.Context, id string) (*model.Message, error) {
	if !store.ValidID(id) {
		return nil, apperror.Validation("invalid message id")
	}
	msg, err := s.messages.GetMessage(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.NotFound("message not found"), "failed to load message")
	}
	return msg, nil
}

// parent loads the conversation owning msg. A missing parent is an
// integrity violation, not a client error.
func (s *MessageService) parent(ctx context.Context, msg *model.Message) (*model.Conversation, error) {
	conv, err := s.convs.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return nil, notFoundOr(err, errMissingParent(err), "failed to load parent conversation")
	}
	return conv, nil
}

func (s *MessageService) touch(ctx context.Context, msg *model.Message) error {
	if err := s.convs.Touch(ctx, msg.ConversationID, s.now()); err != nil {
		return notFoundOr(err, errMissingParent(err), "failed to update conversation activity")
	}
	return nil
}
