// Package service provides business logic for the messaging platform.
package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
	"github.com/capitalize-ai/messaging-platform/pkg/tracing"
)

// Notifier mirrors accepted mutations to live connections. Delivery is
// best-effort: implementations log failures and never report them back.
type Notifier interface {
	// ConversationCreated joins the live sessions of participantIDs to the
	// conversation room, then emits conversation-created to it.
	ConversationCreated(ctx context.Context, conversationID string, participantIDs []string, payload any)
	// Notify emits event to the conversation room.
	Notify(ctx context.Context, conversationID string, event model.EventName, payload any)
	// CloseRoom discards the room. Later joins and events for it are ignored.
	CloseRoom(ctx context.Context, conversationID string)
}

// OnlineLister reports which users currently hold a live connection.
type OnlineLister interface {
	OnlineUserIDs(ctx context.Context) ([]string, error)
}

var tracer = tracing.Tracer("github.com/capitalize-ai/messaging-platform/internal/service")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.KindOf(err).String())
	}
	span.End()
}

// notFoundOr maps store.ErrNotFound to kind-specific errors and anything
// else to an internal error.
func notFoundOr(err error, onMissing error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return onMissing
	}
	return apperror.Internal(op, err)
}

func errMissingParent(err error) error {
	return apperror.Integrity("the message has no conversation parent", err)
}

// nopNotifier is used when no realtime layer is configured.
type nopNotifier struct{}

func (nopNotifier) ConversationCreated(context.Context, string, []string, any) {}
func (nopNotifier) Notify(context.Context, string, model.EventName, any)      {}
func (nopNotifier) CloseRoom(context.Context, string)                         {}
