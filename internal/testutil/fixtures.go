package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with empty relationship sets.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:                primitive.NewObjectID(),
		FullName:          fullName,
		FullNameCI:        text.Fold(fullName),
		Email:             email,
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

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateUserWithProfile creates a test user with courses and interests
// set (suggestion generator inputs).
func (f *Fixtures) CreateUserWithProfile(ctx context.Context, fullName, email string, courses, interests []string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, fullName, email)
	_, err := f.db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
		"$set": bson.M{"courses": courses, "interests": interests},
	})
	if err != nil {
		f.t.Fatalf("failed to set user profile: %v", err)
	}
	user.Courses = courses
	user.Interests = interests
	return user
}

// CreateAdmin creates a test user with the site-wide admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, fullName, email)
	if _, err := f.db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"role": "admin"}}); err != nil {
		f.t.Fatalf("failed to promote test admin: %v", err)
	}
	user.Role = "admin"
	return user
}

// GetUser re-reads a user document.
func (f *Fixtures) GetUser(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()

	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to load test user %s: %v", id.Hex(), err)
	}
	return u
}

// GetGroup re-reads a group document.
func (f *Fixtures) GetGroup(ctx context.Context, id primitive.ObjectID) models.Group {
	f.t.Helper()

	var g models.Group
	if err := f.db.Collection("groups").FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		f.t.Fatalf("failed to load test group %s: %v", id.Hex(), err)
	}
	return g
}

// GetChat re-reads a chat document.
func (f *Fixtures) GetChat(ctx context.Context, id primitive.ObjectID) models.Chat {
	f.t.Helper()

	var c models.Chat
	if err := f.db.Collection("chats").FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		f.t.Fatalf("failed to load test chat %s: %v", id.Hex(), err)
	}
	return c
}

// GetEvent re-reads an event document.
func (f *Fixtures) GetEvent(ctx context.Context, id primitive.ObjectID) models.Event {
	f.t.Helper()

	var e models.Event
	if err := f.db.Collection("events").FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		f.t.Fatalf("failed to load test event %s: %v", id.Hex(), err)
	}
	return e
}
