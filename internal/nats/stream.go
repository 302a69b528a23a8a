package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/messaging-platform/internal/model"
)

const (
	// StreamName is the name of the fan-out journal stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all fan-out subjects.
	SubjectPrefix = "chat.events"

	// controlSubject carries envelopes without an event, such as room closes.
	controlSubject = "control"

	journalMaxAge = 7 * 24 * time.Hour
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the journal stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{AllSubjects()},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      journalMaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Realtime fan-out envelopes for chat events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject an event is published on.
func EventSubject(event model.EventName) string {
	if event == "" {
		return SubjectPrefix + "." + controlSubject
	}
	return SubjectPrefix + "." + string(event)
}

// AllSubjects returns the wildcard covering every fan-out subject.
func AllSubjects() string {
	return SubjectPrefix + ".>"
}
