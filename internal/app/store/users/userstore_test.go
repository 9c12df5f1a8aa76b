package userstore

import (
	"context"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

func TestCreate_InitializesRelationshipSets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	u, err := s.Create(ctx, "Avery Quinn", "Avery@Example.EDU", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "avery@example.edu" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.Friends == nil || u.BlockedUsers == nil || u.Groups == nil {
		t.Error("relationship sets must be initialized, not nil")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hunter2hunter2")); err != nil {
		t.Errorf("password not stored as matching bcrypt hash: %v", err)
	}

	got, err := s.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullNameCI != "avery quinn" {
		t.Errorf("folded name = %q", got.FullNameCI)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	if _, err := s.Create(ctx, "First", "same@example.edu", "password123"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := s.Create(ctx, "Second", "SAME@example.edu", "password123")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("want conflict on duplicate email, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	cases := []struct {
		name, fullName, email, password string
	}{
		{"empty name", "", "a@example.edu", "password123"},
		{"bad email", "A", "not-an-email", "password123"},
		{"short password", "A", "a@example.edu", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(ctx, tc.fullName, tc.email, tc.password)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("want validation error, got %v", err)
			}
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	_, err := s.GetByID(ctx, primitive.NewObjectID())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestDelete_StripsBackReferences(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)

	target := fx.CreateUser(ctx, "Going Away", "gone@example.edu")
	friend := fx.CreateUser(ctx, "Stays Friend", "friend@example.edu")
	blocker := fx.CreateUser(ctx, "Holds Block", "blocker@example.edu")

	// Seed references by hand; the friend store maintains these in production.
	linkUsers(t, ctx, db, friend.ID, "friends", target.ID)
	linkUsers(t, ctx, db, blocker.ID, "blocked_users", target.ID)
	linkUsers(t, ctx, db, blocker.ID, "friend_requests_in", target.ID)

	if err := s.Delete(ctx, target.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.GetByID(ctx, target.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("deleted user still readable: %v", err)
	}
	if got := fx.GetUser(ctx, friend.ID); got.HasFriend(target.ID) {
		t.Error("friend still lists deleted user")
	}
	got := fx.GetUser(ctx, blocker.ID)
	if got.HasBlocked(target.ID) || got.HasIncomingRequest(target.ID) {
		t.Error("blocker still references deleted user")
	}
}

func linkUsers(t *testing.T, ctx context.Context, db *mongo.Database, owner primitive.ObjectID, field string, ref primitive.ObjectID) {
	t.Helper()
	_, err := db.Collection("users").UpdateByID(ctx, owner, bson.M{"$addToSet": bson.M{field: ref}})
	if err != nil {
		t.Fatalf("seed %s: %v", field, err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	u := fx.CreateUser(ctx, "Once", "once@example.edu")

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := s.Delete(ctx, u.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second Delete should report not-found, got %v", err)
	}
}
