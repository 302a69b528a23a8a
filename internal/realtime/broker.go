package realtime

import (
	"context"
	"encoding/json"

	"github.com/capitalize-ai/messaging-platform/internal/model"
)

// Envelope is one fan-out instruction. A hub applies it by first joining
// the live sessions of Join to Room, then delivering Event to Room (or to
// every identified session when Room is empty), then closing Room if Close
// is set. Exclude names a session that must not receive Event; when
// ExcludeUser is set the session is skipped only if it belongs to that user.
type Envelope struct {
	Event       model.EventName `json:"event,omitempty"`
	Room        string          `json:"room,omitempty"`
	Join        []string        `json:"join,omitempty"`
	Close       bool            `json:"close,omitempty"`
	Exclude     string          `json:"exclude,omitempty"`
	ExcludeUser string          `json:"exclude_user,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Broker carries envelopes to every hub that must apply them.
type Broker interface {
	Publish(ctx context.Context, env *Envelope) error
}

// LocalBroker applies envelopes in-process. It is used when the server runs
// as a single instance.
type LocalBroker struct {
	apply func(*Envelope)
}

// NewLocalBroker creates a broker that hands envelopes to apply.
func NewLocalBroker(apply func(*Envelope)) *LocalBroker {
	return &LocalBroker{apply: apply}
}

// Publish applies env synchronously.
func (b *LocalBroker) Publish(ctx context.Context, env *Envelope) error {
	b.apply(env)
	return nil
}
