// internal/app/policy/grouppolicy/grouppolicy.go

// Package grouppolicy answers authorization questions about groups.
//
// Predicates read the authoritative group document and return
// (false, nil) for "not authorized", reserving errors for lookup
// failures. A missing group is an error, never a silent false; the
// caller must be able to tell "no such group" from "not allowed".
package grouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func load(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, apperr.Transient(err)
	}
	return g, nil
}

// IsGroupAdmin reports whether the user is in the group's admin set.
func IsGroupAdmin(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	g, err := load(ctx, db, groupID)
	if err != nil {
		return false, err
	}
	return g.HasAdmin(userID), nil
}

// IsGroupOwner reports whether the user owns the group.
func IsGroupOwner(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	g, err := load(ctx, db, groupID)
	if err != nil {
		return false, err
	}
	return g.OwnerID == userID, nil
}

// IsGroupMember reports whether the user is in the group's member set.
func IsGroupMember(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	g, err := load(ctx, db, groupID)
	if err != nil {
		return false, err
	}
	return g.HasMember(userID), nil
}

// CanDeleteGroup reports whether the user may delete the group: they
// must be the owner AND currently in the admin set. Both conditions are
// checked even though the stores keep the owner in the admin set, so a
// document that drifted cannot be deleted by half a claim.
func CanDeleteGroup(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	g, err := load(ctx, db, groupID)
	if err != nil {
		return false, err
	}
	return g.OwnerID == userID && g.HasAdmin(userID), nil
}
