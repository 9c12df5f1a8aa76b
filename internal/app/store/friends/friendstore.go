// internal/app/store/friends/friendstore.go
package friendstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/txn"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store mutates the friendship edges denormalized onto user documents.
// Every operation keeps the mirrored sides consistent: Friends is
// symmetric, and FriendRequestsOut on the sender mirrors
// FriendRequestsIn on the receiver.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Transient(err)
	}
	return u, nil
}

// SendRequest records a pending friend request from sender to receiver.
// The two single-document writes are ordered sender first; if the
// second write fails the error surfaces and the receiver side can be
// reconciled by resending (the set operations are idempotent).
func (s *Store) SendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) error {
	if senderID == receiverID {
		return apperr.Validation("cannot send a friend request to yourself")
	}
	sender, err := s.get(ctx, senderID)
	if err != nil {
		return err
	}
	receiver, err := s.get(ctx, receiverID)
	if err != nil {
		return err
	}

	if sender.HasBlocked(receiverID) || receiver.HasBlocked(senderID) {
		return apperr.Forbidden("cannot send a friend request to this user")
	}
	if sender.HasFriend(receiverID) {
		return apperr.Conflict("already friends with this user")
	}
	if sender.HasOutgoingRequest(receiverID) {
		return apperr.Conflict("a friend request to this user is already pending")
	}
	if sender.HasIncomingRequest(receiverID) {
		return apperr.Conflict("this user has already sent you a friend request")
	}

	now := time.Now().UTC()
	_, err = s.c.UpdateByID(ctx, senderID, bson.M{
		"$addToSet": bson.M{"friend_requests_out": receiverID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.c.UpdateByID(ctx, receiverID, bson.M{
		"$addToSet": bson.M{"friend_requests_in": senderID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// AcceptRequest converts a pending request into a friendship. Both user
// documents change together; the whole transition runs in a transaction
// and re-checks blocks so a block raced in after Send still wins.
func (s *Store) AcceptRequest(ctx context.Context, userID, senderID primitive.ObjectID) error {
	err := txn.Run(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		user, err := s.get(ctx, userID)
		if err != nil {
			return err
		}
		sender, err := s.get(ctx, senderID)
		if err != nil {
			return err
		}
		if !user.HasIncomingRequest(senderID) {
			return apperr.NotFound("no pending friend request from this user")
		}
		if user.HasBlocked(senderID) || sender.HasBlocked(userID) {
			return apperr.Forbidden("cannot accept a friend request from this user")
		}

		now := time.Now().UTC()
		_, err = s.c.UpdateByID(ctx, userID, bson.M{
			"$pull":     bson.M{"friend_requests_in": senderID},
			"$addToSet": bson.M{"friends": senderID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		_, err = s.c.UpdateByID(ctx, senderID, bson.M{
			"$pull":     bson.M{"friend_requests_out": userID},
			"$addToSet": bson.M{"friends": userID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		return nil
	})
	if err != nil && txn.IsConflict(err) {
		return apperr.Transient(err)
	}
	return err
}

// RejectRequest drops a pending request without creating a friendship.
func (s *Store) RejectRequest(ctx context.Context, userID, senderID primitive.ObjectID) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasIncomingRequest(senderID) {
		return apperr.NotFound("no pending friend request from this user")
	}
	return s.clearPending(ctx, senderID, userID)
}

// CancelRequest withdraws the sender's own pending request.
func (s *Store) CancelRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) error {
	sender, err := s.get(ctx, senderID)
	if err != nil {
		return err
	}
	if !sender.HasOutgoingRequest(receiverID) {
		return apperr.NotFound("no pending friend request to this user")
	}
	return s.clearPending(ctx, senderID, receiverID)
}

// clearPending removes the out/in pair for a request from sender to
// receiver. Both pulls are idempotent.
func (s *Store) clearPending(ctx context.Context, senderID, receiverID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, senderID, bson.M{
		"$pull": bson.M{"friend_requests_out": receiverID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.c.UpdateByID(ctx, receiverID, bson.M{
		"$pull": bson.M{"friend_requests_in": senderID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// RemoveFriend dissolves an existing friendship from both sides.
func (s *Store) RemoveFriend(ctx context.Context, userID, otherID primitive.ObjectID) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasFriend(otherID) {
		return apperr.NotFound("not friends with this user")
	}

	now := time.Now().UTC()
	_, err = s.c.UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"friends": otherID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.c.UpdateByID(ctx, otherID, bson.M{
		"$pull": bson.M{"friends": userID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// Block records the block marker on the blocker and strips any
// friendship or pending request in either direction from both
// documents. Blocking an already-blocked user is a no-op success.
func (s *Store) Block(ctx context.Context, userID, targetID primitive.ObjectID) error {
	if userID == targetID {
		return apperr.Validation("cannot block yourself")
	}
	if _, err := s.get(ctx, targetID); err != nil {
		return err
	}
	err := txn.Run(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		now := time.Now().UTC()
		res, err := s.c.UpdateByID(ctx, userID, bson.M{
			"$addToSet": bson.M{"blocked_users": targetID},
			"$pull": bson.M{
				"friends":             targetID,
				"friend_requests_in":  targetID,
				"friend_requests_out": targetID,
			},
			"$set": bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		if res.MatchedCount == 0 {
			return apperr.NotFound("user not found")
		}
		_, err = s.c.UpdateByID(ctx, targetID, bson.M{
			"$pull": bson.M{
				"friends":             userID,
				"friend_requests_in":  userID,
				"friend_requests_out": userID,
			},
			"$set": bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		return nil
	})
	if err != nil && txn.IsConflict(err) {
		return apperr.Transient(err)
	}
	return err
}

// Unblock removes the block marker only. Nothing that the block
// dissolved is restored.
func (s *Store) Unblock(ctx context.Context, userID, targetID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"blocked_users": targetID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
