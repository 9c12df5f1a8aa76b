// internal/app/system/notify/envelope.go
package notify

import (
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Envelope is one outbound notification for one recipient. Envelopes
// are enqueued after the triggering mutation has committed; the UUID
// lets the consumer and dead-letter log correlate retries of the same
// send, though delivery is at-least-once and duplicates are accepted.
type Envelope struct {
	ID          string                `json:"id"`
	RecipientID primitive.ObjectID    `json:"recipient_id"`
	Type        string                `json:"type"`
	Message     string                `json:"message"`
	SenderID    *primitive.ObjectID   `json:"sender_id,omitempty"`
	Related     *models.RelatedEntity `json:"related,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// NewEnvelope builds an envelope for one recipient.
func NewEnvelope(recipient primitive.ObjectID, notifType, message string, sender *primitive.ObjectID, related *models.RelatedEntity) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Type:        notifType,
		Message:     message,
		SenderID:    sender,
		Related:     related,
		CreatedAt:   time.Now().UTC(),
	}
}
