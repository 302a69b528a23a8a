package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/messaging-platform/internal/middleware"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/service"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// Edit handles PUT /messages/{id}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("message", msgID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	var req model.EditMessageRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.Edit(ctx, middleware.GetUserID(ctx), msgID, req.Content)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: model.MessageRef{ID: msg.ID}})
}

// React handles POST /messages/{id}. An empty body clears the caller's reaction.
func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("message", msgID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	var req model.ReactRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.React(ctx, middleware.GetUserID(ctx), msgID, req.Reaction)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: model.MessageRef{ID: msg.ID}})
}

// Delete handles DELETE /messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgID := chi.URLParam(r, "id")

	if err := middleware.ValidateID("message", msgID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.Delete(ctx, middleware.GetUserID(ctx), msgID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: model.MessageRef{ID: msg.ID}})
}
