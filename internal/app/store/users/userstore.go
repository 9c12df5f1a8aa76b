// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Transient(err)
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Transient(err)
	}
	return u, nil
}

// Create inserts a new user with every relationship set initialized
// empty. The password is stored as a bcrypt hash. A friendly duplicate
// check runs first; the unique email index is the backstop under
// concurrent creates.
func (s *Store) Create(ctx context.Context, fullName, email, password string) (models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)
	if fullName == "" {
		return models.User{}, apperr.Validation("full name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, apperr.Validation("a valid email is required")
	}
	if len(password) < 8 {
		return models.User{}, apperr.Validation("password must be at least 8 characters")
	}

	if err := s.c.FindOne(ctx, bson.M{"email": email}).Err(); err == nil {
		return models.User{}, apperr.Conflict("a user with this email already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.Transient(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Transient(err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:                primitive.NewObjectID(),
		FullName:          fullName,
		FullNameCI:        text.Fold(fullName),
		Email:             email,
		Password:          string(hash),
		Role:              "member",
		Status:            "active",
		Friends:           []primitive.ObjectID{},
		FriendRequestsIn:  []primitive.ObjectID{},
		FriendRequestsOut: []primitive.ObjectID{},
		BlockedUsers:      []primitive.ObjectID{},
		Groups:            []primitive.ObjectID{},
		GroupJoinRequests: []primitive.ObjectID{},
		PrivateChats:      []primitive.ObjectID{},
		EventsAttending:   []primitive.ObjectID{},
		Settings:          models.UserSettings{Privacy: models.PrivacyEveryone},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, apperr.Conflict("a user with this email already exists")
		}
		return models.User{}, apperr.Transient(err)
	}
	return u, nil
}

// UpdateProfile replaces the user's suggestion inputs.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, courses, interests []string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"courses":    foldAll(courses),
		"interests":  foldAll(interests),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// UpdateSettings replaces the user's privacy setting.
func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, privacy string) error {
	switch privacy {
	case models.PrivacyEveryone, models.PrivacyFriends, models.PrivacyNone:
	default:
		return apperr.Validation("privacy must be everyone, friends, or none")
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"settings.privacy": privacy,
		"updated_at":       time.Now().UTC(),
	}})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// Delete removes the user document and strips the user's key from every
// other user's relationship sets (friends, pending requests both
// directions, block lists). Group, chat, event, notification, and
// suggestion cleanup belongs to those stores; the users feature
// orchestrates the full cascade.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{
		"friends":             id,
		"friend_requests_in":  id,
		"friend_requests_out": id,
		"blocked_users":       id,
	}})
	if err != nil {
		return apperr.Transient(err)
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func foldAll(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, text.Fold(v))
	}
	return out
}
