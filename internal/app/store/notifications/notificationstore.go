// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists notification documents. Write is the notify.Writer
// the consumer (or the in-process fallback publisher) delivers into;
// everything else serves the recipient-facing inbox.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

var _ notify.Writer = (*Store)(nil)

// Write persists one delivered envelope as an unread notification.
func (s *Store) Write(ctx context.Context, env notify.Envelope) error {
	n := models.Notification{
		ID:          primitive.NewObjectID(),
		RecipientID: env.RecipientID,
		Type:        env.Type,
		Message:     env.Message,
		SenderID:    env.SenderID,
		Related:     env.Related,
		Read:        false,
		CreatedAt:   env.CreatedAt,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// ListForRecipient returns the recipient's notifications, newest first.
func (s *Store) ListForRecipient(ctx context.Context, recipientID primitive.ObjectID, onlyUnread bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	filter := bson.M{"recipient_id": recipientID}
	if onlyUnread {
		filter["read"] = false
	}
	cur, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// MarkRead flags one notification read. Scoped to the recipient so a
// caller cannot touch someone else's inbox.
func (s *Store) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead flags every unread notification for the recipient.
func (s *Store) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// Delete removes one notification from the recipient's inbox.
func (s *Store) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": recipientID})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// DeleteForUser wipes a departing user's inbox. Used by the user-delete
// cascade.
func (s *Store) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.c.DeleteMany(ctx, bson.M{"recipient_id": userID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}
