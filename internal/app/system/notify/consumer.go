// internal/app/system/notify/consumer.go
package notify

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/clubhub/internal/app/system/observe"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the notification queue and persists each envelope
// via the Writer. An envelope that cannot be decoded or written is
// recorded in the dead-letter log and acknowledged anyway; notification
// delivery is best-effort and must never wedge the queue.
type Consumer struct {
	url      string
	exchange string
	queue    string
	writer   Writer
	log      *zap.Logger
}

// NewConsumer builds a Consumer bound to the given queue.
func NewConsumer(amqpURL, exchange, queue string, writer Writer, logger *zap.Logger) *Consumer {
	return &Consumer{url: amqpURL, exchange: exchange, queue: queue, writer: writer, log: logger}
}

// Run consumes until ctx is canceled or the connection drops. The
// caller owns reconnect policy.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, RoutingKey, c.exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info("notification consumer started", zap.String("queue", q.Name))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		c.deadLetter(msg.MessageId, err)
		_ = msg.Ack(false)
		return
	}
	if err := c.writer.Write(ctx, env); err != nil {
		c.deadLetter(env.ID, err)
		_ = msg.Ack(false)
		return
	}
	_ = msg.Ack(false)
}

// deadLetter records an undeliverable envelope. The structured log line
// is the dead-letter store; operators replay from it if ever needed.
func (c *Consumer) deadLetter(envelopeID string, err error) {
	observe.NotifyDeadLetter()
	c.log.Error("notification dead-lettered",
		zap.String("envelope_id", envelopeID),
		zap.Error(err))
}
