// internal/app/system/notify/publisher.go
package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RoutingKey is the topic key for notification envelopes.
const RoutingKey = "notify.created"

// Publisher hands envelopes to the notification transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// NewPublisher builds an AMQP publisher, or falls back to the given
// writer-backed publisher when the broker is not configured or not
// reachable. The service stays functional either way; only the
// asynchronous decoupling is lost in fallback mode.
func NewPublisher(amqpURL, exchange string, fallback Publisher, logger *zap.Logger) Publisher {
	if amqpURL == "" {
		logger.Info("amqp disabled, notifications delivered in-process")
		return fallback
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warn("amqp dial failed, notifications delivered in-process", zap.Error(err))
		return fallback
	}
	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("amqp channel failed, notifications delivered in-process", zap.Error(err))
		_ = conn.Close()
		return fallback
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		logger.Warn("amqp exchange declare failed, notifications delivered in-process", zap.Error(err))
		_ = ch.Close()
		_ = conn.Close()
		return fallback
	}

	logger.Info("amqp connected", zap.String("exchange", exchange))
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Body:         body,
	})
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// WriterPublisher delivers envelopes synchronously to a Writer. It is
// the fallback transport when no broker is configured, and the terminal
// step of the AMQP consumer.
type WriterPublisher struct {
	W Writer
}

// Writer persists a delivered envelope as a notification document.
type Writer interface {
	Write(ctx context.Context, env Envelope) error
}

func (p WriterPublisher) Publish(ctx context.Context, env Envelope) error {
	return p.W.Write(ctx, env)
}

func (p WriterPublisher) Close() error { return nil }
