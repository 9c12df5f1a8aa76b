// internal/app/store/suggestions/suggestionstore.go
package suggestionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxSuggestions caps one generator run per user.
const maxSuggestions = 10

// Store owns the suggested_friends collection and the batch generator
// that fills it.
type Store struct {
	suggestions *mongo.Collection
	users       *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		suggestions: db.Collection("suggested_friends"),
		users:       db.Collection("users"),
	}
}

// Generate scans the user base and rebuilds the suggestion list for one
// user. Candidates already connected to the user in any way (friend,
// pending request either direction, blocked either direction) are
// skipped, as are users who opted out of discovery. Each surviving
// candidate gets the first matching reason in ranking order: shared
// course, shared interest, shared group.
//
// The batch insert is best-effort: a partial failure leaves the earlier
// writes in place, and re-running regenerates the full list.
func (s *Store) Generate(ctx context.Context, userID primitive.ObjectID) ([]models.SuggestedFriend, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Transient(err)
	}

	courses := foldSet(user.Courses)
	interests := foldSet(user.Interests)
	groups := idSet(user.Groups)

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$ne": userID}})
	if err != nil {
		return nil, apperr.Transient(err)
	}
	defer cur.Close(ctx)

	now := time.Now().UTC()
	var picked []models.SuggestedFriend
	for cur.Next(ctx) {
		var cand models.User
		if err := cur.Decode(&cand); err != nil {
			return nil, apperr.Transient(err)
		}
		if skipCandidate(user, cand) {
			continue
		}

		reason := matchReason(cand, courses, interests, groups)
		if reason == "" {
			continue
		}
		picked = append(picked, models.SuggestedFriend{
			ID:              primitive.NewObjectID(),
			UserID:          userID,
			SuggestedUserID: cand.ID,
			Reason:          reason,
			CreatedAt:       now,
		})
		if len(picked) >= maxSuggestions {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Transient(err)
	}

	if _, err := s.suggestions.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return nil, apperr.Transient(err)
	}
	if len(picked) == 0 {
		return []models.SuggestedFriend{}, nil
	}

	docs := make([]interface{}, len(picked))
	for i, sf := range picked {
		docs[i] = sf
	}
	_, err = s.suggestions.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !wafflemongo.IsDup(err) {
		return picked, apperr.Transient(err)
	}
	return picked, nil
}

func skipCandidate(user, cand models.User) bool {
	switch {
	case user.HasFriend(cand.ID),
		user.HasBlocked(cand.ID),
		cand.HasBlocked(user.ID),
		user.HasIncomingRequest(cand.ID),
		user.HasOutgoingRequest(cand.ID):
		return true
	}
	return cand.Settings.Privacy == models.PrivacyNone
}

func matchReason(cand models.User, courses, interests map[string]bool, groups map[primitive.ObjectID]bool) string {
	for _, c := range cand.Courses {
		if courses[text.Fold(c)] {
			return models.SuggestReasonSharedCourse
		}
	}
	for _, i := range cand.Interests {
		if interests[text.Fold(i)] {
			return models.SuggestReasonSharedInterest
		}
	}
	for _, g := range cand.Groups {
		if groups[g] {
			return models.SuggestReasonSharedGroup
		}
	}
	return ""
}

func foldSet(vals []string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[text.Fold(v)] = true
	}
	return out
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	out := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// ListForUser returns the user's current suggestions.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.SuggestedFriend, error) {
	cur, err := s.suggestions.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.SuggestedFriend
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// Dismiss removes one suggestion from the owner's list.
func (s *Store) Dismiss(ctx context.Context, userID, suggestedUserID primitive.ObjectID) error {
	res, err := s.suggestions.DeleteOne(ctx, bson.M{
		"user_id":           userID,
		"suggested_user_id": suggestedUserID,
	})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("suggestion not found")
	}
	return nil
}

// DeleteForUser removes suggestions owned by or pointing at a departing
// user. Used by the user-delete cascade.
func (s *Store) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.suggestions.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"user_id": userID},
		bson.M{"suggested_user_id": userID},
	}})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}
