package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/realtime"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// Broker publishes fan-out envelopes to JetStream and feeds envelopes from
// every instance back into the local hub.
type Broker struct {
	client *Client
	logger *logger.Logger
}

var _ realtime.Broker = (*Broker)(nil)

// NewBroker creates a broker on an established client. The journal stream
// must already exist.
func NewBroker(client *Client, log *logger.Logger) *Broker {
	return &Broker{client: client, logger: log}
}

// Publish journals env. Delivery to hubs happens through Subscribe,
// including on this instance.
func (b *Broker) Publish(ctx context.Context, env *realtime.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if _, err := b.client.JetStream().Publish(ctx, EventSubject(env.Event), data); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Subscribe consumes new envelopes in stream order and hands each to apply.
// The returned function stops consumption.
func (b *Broker) Subscribe(ctx context.Context, apply func(*realtime.Envelope)) (func(), error) {
	consumer, err := b.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{AllSubjects()},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var env realtime.Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			b.logger.Warn("discarding malformed envelope",
				zap.String("subject", msg.Subject()),
				zap.Error(err),
			)
			return
		}
		apply(&env)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	b.logger.Info("Subscribed to fan-out stream", zap.String("stream", StreamName))
	return cc.Stop, nil
}
