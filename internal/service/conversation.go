package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/guard"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
	"github.com/capitalize-ai/messaging-platform/pkg/metrics"
)

// ConversationService handles conversation operations and message posting.
type ConversationService struct {
	users    store.UserStore
	convs    store.ConversationStore
	messages store.MessageStore
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewConversationService creates a new conversation service. A nil notifier
// disables realtime delivery.
func NewConversationService(st store.Store, notifier Notifier, log *logger.Logger) *ConversationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ConversationService{
		users:    st.Users(),
		convs:    st.Conversations(),
		messages: st.Messages(),
		notifier: notifier,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create creates a conversation between the requester and the invited users.
// Participants keep invite order, followed by the requester.
func (s *ConversationService) Create(ctx context.Context, requesterID string, req *model.CreateConversationRequest) (conv *model.Conversation, err error) {
	ctx, span := startSpan(ctx, "ConversationService.Create")
	defer func() { endSpan(span, err) }()

	if len(req.ParticipantIDs) == 0 {
		return nil, apperror.Validation("at least one participant is required")
	}

	invited := make([]string, 0, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		if !store.ValidID(id) {
			return nil, apperror.Validation(fmt.Sprintf("invalid participant id: %q", id))
		}
		invited = append(invited, store.CanonicalID(id))
	}

	found, err := s.users.GetUsersByIDs(ctx, invited)
	if err != nil {
		return nil, apperror.Internal("failed to look up participants", err)
	}
	known := make(map[string]struct{}, len(found))
	for _, u := range found {
		known[u.ID] = struct{}{}
	}
	for _, id := range invited {
		if _, ok := known[id]; !ok {
			return nil, apperror.Validation(fmt.Sprintf("user %s does not exist", id))
		}
	}

	now := s.now()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = now.Format(time.RFC3339)
	}

	conv = &model.Conversation{
		ID:           store.NewID(),
		Title:        title,
		LastActivity: now,
		Participants: dedupe(append(invited, store.CanonicalID(requesterID))),
		MessageIDs:   []string{},
		Seen:         map[string]string{},
	}
	if err := s.convs.CreateConversation(ctx, conv); err != nil {
		return nil, apperror.Internal("failed to create conversation", err)
	}

	span.SetAttributes(attribute.String("conversation.id", conv.ID))
	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", requesterID),
		zap.Int("participants", len(conv.Participants)),
	)

	view, err := s.view(ctx, conv)
	if err != nil {
		s.logger.Warn("failed to build conversation view", zap.String("conversation_id", conv.ID), zap.Error(err))
	} else {
		s.notifier.ConversationCreated(ctx, conv.ID, conv.Participants, model.ConversationEvent{Conversation: view})
	}

	return conv, nil
}

// List returns the requester's conversations with participants and
// messages resolved.
func (s *ConversationService) List(ctx context.Context, requesterID string) (views []model.ConversationView, err error) {
	ctx, span := startSpan(ctx, "ConversationService.List")
	defer func() { endSpan(span, err) }()

	convs, err := s.convs.ListConversationsForUser(ctx, store.CanonicalID(requesterID))
	if err != nil {
		return nil, apperror.Internal("failed to list conversations", err)
	}

	views = make([]model.ConversationView, 0, len(convs))
	for i := range convs {
		v, err := s.view(ctx, &convs[i])
		if err != nil {
			return nil, apperror.Internal("failed to resolve conversation", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

// Delete removes a conversation. Any participant may delete it.
func (s *ConversationService) Delete(ctx context.Context, requesterID, conversationID string) (err error) {
	ctx, span := startSpan(ctx, "ConversationService.Delete")
	defer func() { endSpan(span, err) }()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := guard.RequireParticipant(requesterID, conv); err != nil {
		return err
	}

	if err := s.convs.DeleteConversation(ctx, conv.ID); err != nil {
		return notFoundOr(err, apperror.NotFound("conversation not found"), "failed to delete conversation")
	}

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", requesterID),
	)

	s.notifier.Notify(ctx, conv.ID, model.EventConversationDeleted, model.ConversationEvent{
		Conversation: model.ConversationRef{ID: conv.ID, Title: conv.Title},
	})
	s.notifier.CloseRoom(ctx, conv.ID)
	return nil
}

// MarkSeen records messageID as the last message the requester has seen.
func (s *ConversationService) MarkSeen(ctx context.Context, requesterID, conversationID, messageID string) (err error) {
	ctx, span := startSpan(ctx, "ConversationService.MarkSeen")
	defer func() { endSpan(span, err) }()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := guard.RequireParticipant(requesterID, conv); err != nil {
		return err
	}

	if !store.ValidID(messageID) {
		return apperror.Validation("invalid message id")
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return notFoundOr(err, apperror.Validation("the message does not exist"), "failed to look up message")
	}
	if store.CanonicalID(msg.ConversationID) != conv.ID {
		return apperror.Validation("the message does not belong to this conversation")
	}

	userID := store.CanonicalID(requesterID)
	if err := s.convs.SetSeen(ctx, conv.ID, userID, msg.ID); err != nil {
		return notFoundOr(err, errMissingParent(err), "failed to update seen pointer")
	}

	s.notifier.Notify(ctx, conv.ID, model.EventConversationSeenUpdated, model.SeenEvent{
		ConversationID: conv.ID,
		UserID:         userID,
		MessageID:      msg.ID,
	})
	return nil
}

// SendMessage posts a message into a conversation. The message is written
// first and then linked into the conversation; the two writes are not atomic.
func (s *ConversationService) SendMessage(ctx context.Context, requesterID, conversationID string, req *model.SendMessageRequest) (msg *model.Message, err error) {
	ctx, span := startSpan(ctx, "ConversationService.SendMessage")
	defer func() { endSpan(span, err) }()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireParticipant(requesterID, conv); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperror.Validation("content cannot be empty")
	}

	var replyTo string
	if req.ReplyToID != "" {
		if !store.ValidID(req.ReplyToID) {
			return nil, apperror.Validation("invalid reply_to_id")
		}
		parent, err := s.messages.GetMessage(ctx, req.ReplyToID)
		if err != nil {
			return nil, notFoundOr(err, apperror.Validation("the replied message does not exist"), "failed to look up replied message")
		}
		if store.CanonicalID(parent.ConversationID) != conv.ID {
			return nil, apperror.Validation("the replied message belongs to another conversation")
		}
		replyTo = parent.ID
	}

	now := s.now()
	msg = &model.Message{
		ID:             store.NewID(),
		ConversationID: conv.ID,
		AuthorID:       store.CanonicalID(requesterID),
		ReplyToID:      replyTo,
		Content:        req.Content,
		PostedAt:       now,
		Reactions:      map[string]model.Reaction{},
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, apperror.Internal("failed to create message", err)
	}
	if err := s.convs.AppendMessage(ctx, conv.ID, msg.ID, now); err != nil {
		return nil, notFoundOr(err, errMissingParent(err), "failed to link message")
	}

	span.SetAttributes(attribute.String("message.id", msg.ID))
	metrics.RecordMessageOp("create")
	s.logger.Info("message posted",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", msg.ID),
		zap.String("user_id", msg.AuthorID),
	)

	s.notifier.Notify(ctx, conv.ID, model.EventMessageCreated, model.MessageEvent{Message: msg.Public()})
	return msg, nil
}

// Get returns the denormalized view of one conversation the requester belongs to.
func (s *ConversationService) Get(ctx context.Context, requesterID, conversationID string) (view *model.ConversationView, err error) {
	ctx, span := startSpan(ctx, "ConversationService.Get")
	defer func() { endSpan(span, err) }()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireParticipant(requesterID, conv); err != nil {
		return nil, err
	}
	view, err = s.view(ctx, conv)
	if err != nil {
		return nil, apperror.Internal("failed to resolve conversation", err)
	}
	return view, nil
}

func (s *ConversationService) load(ctx context.Context, id string) (*model.Conversation, error) {
	if !store.ValidID(id) {
		return nil, apperror.Validation("invalid conversation id")
	}
	conv, err := s.convs.GetConversation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.NotFound("conversation not found"), "failed to load conversation")
	}
	return conv, nil
}

// view resolves participants and messages. Messages linked into the
// conversation but missing from the store are skipped.
func (s *ConversationService) view(ctx context.Context, conv *model.Conversation) (*model.ConversationView, error) {
	users, err := s.users.GetUsersByIDs(ctx, conv.Participants)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.GetMessages(ctx, conv.MessageIDs)
	if err != nil {
		return nil, err
	}

	v := &model.ConversationView{
		ID:           conv.ID,
		Title:        conv.Title,
		LastActivity: conv.LastActivity,
		Participants: summaries(users),
		Messages:     make([]model.Message, 0, len(msgs)),
		Seen:         make(map[string]string, len(conv.Seen)),
	}
	for i := range msgs {
		v.Messages = append(v.Messages, msgs[i].Public())
	}
	for k, id := range conv.Seen {
		v.Seen[k] = id
	}
	return v, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

