// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/messaging-platform/internal/middleware"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/service"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateConversationRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	conv, err := h.service.Create(ctx, userID, &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ConversationResponse{
		Conversation: model.ConversationRef{ID: conv.ID, Title: conv.Title},
	})
}

// List handles GET /conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.service.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if views == nil {
		views = []model.ConversationView{}
	}

	writeJSON(w, http.StatusOK, model.ListConversationsResponse{Conversations: views})
}

// Get handles GET /conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("conversation", convID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	view, err := h.service.Get(ctx, middleware.GetUserID(ctx), convID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("conversation", convID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), convID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ConversationResponse{
		Conversation: model.ConversationRef{ID: convID},
	})
}

// MarkSeen handles POST /conversations/see/{id}
func (h *ConversationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("conversation", convID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	var req model.MarkSeenRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := h.service.MarkSeen(ctx, middleware.GetUserID(ctx), convID, req.MessageID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ConversationResponse{
		Conversation: model.ConversationRef{ID: convID},
	})
}

// SendMessage handles POST /conversations/{id}
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("conversation", convID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.SendMessage(ctx, middleware.GetUserID(ctx), convID, &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{
		Message: model.MessageRef{ID: msg.ID},
	})
}
