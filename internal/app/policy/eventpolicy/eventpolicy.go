// internal/app/policy/eventpolicy/eventpolicy.go

// Package eventpolicy answers authorization questions about events.
package eventpolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/clubhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func load(ctx context.Context, db *mongo.Database, eventID primitive.ObjectID) (models.Event, error) {
	var e models.Event
	err := db.Collection("events").FindOne(ctx, bson.M{"_id": eventID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, apperr.NotFound("event not found")
		}
		return models.Event{}, apperr.Transient(err)
	}
	return e, nil
}

// CanDeleteEvent reports whether the user may delete the event: either
// they created it, or they administer the owning group.
func CanDeleteEvent(ctx context.Context, db *mongo.Database, eventID, userID primitive.ObjectID) (bool, error) {
	e, err := load(ctx, db, eventID)
	if err != nil {
		return false, err
	}
	if e.CreatorID == userID {
		return true, nil
	}
	return grouppolicy.IsGroupAdmin(ctx, db, e.GroupID, userID)
}

// CanEditEvent reports whether the user may edit event details: group
// admins only.
func CanEditEvent(ctx context.Context, db *mongo.Database, eventID, userID primitive.ObjectID) (bool, error) {
	e, err := load(ctx, db, eventID)
	if err != nil {
		return false, err
	}
	return grouppolicy.IsGroupAdmin(ctx, db, e.GroupID, userID)
}
