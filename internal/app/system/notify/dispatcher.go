// Package notify implements best-effort notification fan-out.
//
// Mutation handlers call Dispatcher.Dispatch after their transaction
// has committed. One envelope is enqueued per recipient; a failed send
// is logged, counted, and dropped from the result - it never aborts,
// retries, or rolls back the mutation that triggered it. Duplicate
// notifications across caller retries are an accepted risk.
package notify

import (
	"context"

	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Dispatcher fans out envelopes to the configured publisher.
type Dispatcher struct {
	pub Publisher
	log *zap.Logger
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(pub Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: logger}
}

// Dispatch enqueues one envelope per recipient and returns the
// envelopes that were accepted by the transport. Failures are logged
// and excluded; the returned slice is informational only.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []primitive.ObjectID, notifType, message string, sender *primitive.ObjectID, related *models.RelatedEntity) []Envelope {
	sent := make([]Envelope, 0, len(recipients))
	for _, rid := range recipients {
		if sender != nil && rid == *sender {
			continue // never notify the actor about their own action
		}
		env := NewEnvelope(rid, notifType, message, sender, related)
		if err := d.pub.Publish(ctx, env); err != nil {
			observe.NotifyFailed()
			d.log.Warn("notification send failed",
				zap.String("envelope_id", env.ID),
				zap.String("type", notifType),
				zap.String("recipient_id", rid.Hex()),
				zap.Error(err))
			continue
		}
		observe.NotifyPublished()
		sent = append(sent, env)
	}
	return sent
}
