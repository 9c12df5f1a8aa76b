// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/sanitize"
	"github.com/dalemusser/clubhub/internal/app/system/txn"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store mutates groups and the denormalized membership state mirrored
// onto users, companion chats, and events.
type Store struct {
	groups    *mongo.Collection
	users     *mongo.Collection
	chats     *mongo.Collection
	messages  *mongo.Collection
	chatReads *mongo.Collection
	events    *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		groups:    db.Collection("groups"),
		users:     db.Collection("users"),
		chats:     db.Collection("chats"),
		messages:  db.Collection("messages"),
		chatReads: db.Collection("chat_reads"),
		events:    db.Collection("events"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, apperr.Transient(err)
	}
	return g, nil
}

// Create inserts a new group with the owner as sole member and admin,
// and provisions the companion group chat in the same operation. A chat
// provisioning failure fails the create; a group left without its chat
// would break every later membership transition.
//
// Name uniqueness: a friendly pre-check gives the 400; the unique index
// on name_ci is the backstop under concurrent creates.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, name, description string) (models.Group, error) {
	name = sanitize.Text(name)
	if name == "" {
		return models.Group{}, apperr.Validation("group name is required")
	}
	nameCI := text.Fold(name)

	if err := s.groups.FindOne(ctx, bson.M{"name_ci": nameCI}).Err(); err == nil {
		return models.Group{}, apperr.Conflict("a group with this name already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, apperr.Transient(err)
	}

	now := time.Now().UTC()
	groupID := primitive.NewObjectID()

	chat := models.Chat{
		ID:        primitive.NewObjectID(),
		Type:      models.ChatTypeGroup,
		GroupID:   groupID,
		Members:   []primitive.ObjectID{ownerID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return models.Group{}, apperr.Transient(err)
	}

	g := models.Group{
		ID:           groupID,
		Name:         name,
		NameCI:       nameCI,
		Description:  sanitize.Rich(description),
		OwnerID:      ownerID,
		Members:      []primitive.ObjectID{ownerID},
		Admins:       []primitive.ObjectID{ownerID},
		JoinRequests: []primitive.ObjectID{},
		Events:       []primitive.ObjectID{},
		ChatID:       chat.ID,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.groups.InsertOne(ctx, g); err != nil {
		_, _ = s.chats.DeleteOne(ctx, bson.M{"_id": chat.ID})
		if wafflemongo.IsDup(err) {
			return models.Group{}, apperr.Conflict("a group with this name already exists")
		}
		return models.Group{}, apperr.Transient(err)
	}

	_, err := s.users.UpdateByID(ctx, ownerID, bson.M{
		"$addToSet": bson.M{"groups": groupID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return models.Group{}, apperr.Transient(err)
	}
	return g, nil
}

// UpdateInfo applies an allowlisted name/description edit.
func (s *Store) UpdateInfo(ctx context.Context, groupID primitive.ObjectID, name, description *string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil {
		clean := sanitize.Text(*name)
		if clean == "" {
			return apperr.Validation("group name cannot be empty")
		}
		set["name"] = clean
		set["name_ci"] = text.Fold(clean)
	}
	if description != nil {
		set["description"] = sanitize.Rich(*description)
	}
	res, err := s.groups.UpdateByID(ctx, groupID, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return apperr.Conflict("a group with this name already exists")
		}
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("group not found")
	}
	return nil
}

// SendJoinRequest records a pending join request on the group and
// mirrors it onto the user.
func (s *Store) SendJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.HasMember(userID) {
		return apperr.Conflict("already a member of this group")
	}
	if g.HasJoinRequest(userID) {
		return apperr.Conflict("a join request for this group is already pending")
	}

	now := time.Now().UTC()
	_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"join_requests": userID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	res, err := s.users.UpdateByID(ctx, userID, bson.M{
		"$addToSet": bson.M{"group_join_requests": groupID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// RemoveJoinRequest drops a pending request from both sides. Covers
// both the requester withdrawing and an admin rejecting.
func (s *Store) RemoveJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.HasJoinRequest(userID) {
		return apperr.NotFound("no pending join request for this user")
	}

	now := time.Now().UTC()
	_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
		"$pull": bson.M{"join_requests": userID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.users.UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"group_join_requests": groupID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// AcceptJoinRequest promotes a pending request to membership. Three
// documents change together (group, user, companion chat); the
// transition is all-or-nothing.
func (s *Store) AcceptJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) error {
	err := txn.Run(ctx, s.groups.Database().Client(), func(ctx context.Context) error {
		g, err := s.GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !g.HasJoinRequest(userID) {
			return apperr.NotFound("no pending join request for this user")
		}

		// The companion chat goes first: a missing chat must abort
		// before any membership is granted.
		now := time.Now().UTC()
		res, err := s.chats.UpdateByID(ctx, g.ChatID, bson.M{
			"$addToSet": bson.M{"members": userID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		if res.MatchedCount == 0 {
			return apperr.NotFound("companion chat not found")
		}
		_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
			"$pull":     bson.M{"join_requests": userID},
			"$addToSet": bson.M{"members": userID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		res, err = s.users.UpdateByID(ctx, userID, bson.M{
			"$pull":     bson.M{"group_join_requests": groupID},
			"$addToSet": bson.M{"groups": groupID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		if res.MatchedCount == 0 {
			return apperr.NotFound("user not found")
		}
		return nil
	})
	if err != nil && txn.IsConflict(err) {
		return apperr.Transient(err)
	}
	return err
}

// Leave removes a member from the group, its admin set, the companion
// chat, and the user's own group list. The owner cannot leave; they
// delete the group or the group outlives them.
func (s *Store) Leave(ctx context.Context, groupID, userID primitive.ObjectID) error {
	err := txn.Run(ctx, s.groups.Database().Client(), func(ctx context.Context) error {
		g, err := s.GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		if g.OwnerID == userID {
			return apperr.Forbidden("the owner cannot leave the group")
		}
		if !g.HasMember(userID) {
			return apperr.NotFound("not a member of this group")
		}

		now := time.Now().UTC()
		_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
			"$pull": bson.M{"members": userID, "admins": userID},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		_, err = s.users.UpdateByID(ctx, userID, bson.M{
			"$pull": bson.M{"groups": groupID},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		_, err = s.chats.UpdateByID(ctx, g.ChatID, bson.M{
			"$pull": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		_, err = s.chatReads.DeleteOne(ctx, bson.M{"chat_id": g.ChatID, "user_id": userID})
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

// AddAdmin promotes an existing member to admin.
func (s *Store) AddAdmin(ctx context.Context, groupID, userID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.HasMember(userID) {
		return apperr.Conflict("user must be a member before becoming an admin")
	}
	if g.HasAdmin(userID) {
		return apperr.Conflict("user is already an admin")
	}
	_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"admins": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// RemoveAdmin demotes an admin back to plain member. The owner is
// always an admin and cannot be demoted.
func (s *Store) RemoveAdmin(ctx context.Context, groupID, userID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID == userID {
		return apperr.Forbidden("the owner cannot be removed from the admins")
	}
	if !g.HasAdmin(userID) {
		return apperr.NotFound("user is not an admin of this group")
	}
	_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
		"$pull": bson.M{"admins": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// Delete cascades the group away: companion chat with its messages and
// read markers, the group's events and their attendee back-references,
// membership and join-request back-references on users, then the group
// document itself. Every step is an idempotent set operation or a
// delete-by-filter, so a partially failed cascade is safe to re-run.
func (s *Store) Delete(ctx context.Context, groupID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	if _, err := s.messages.DeleteMany(ctx, bson.M{"chat_id": g.ChatID}); err != nil {
		return apperr.Transient(err)
	}
	if _, err := s.chatReads.DeleteMany(ctx, bson.M{"chat_id": g.ChatID}); err != nil {
		return apperr.Transient(err)
	}
	if _, err := s.chats.DeleteOne(ctx, bson.M{"_id": g.ChatID}); err != nil {
		return apperr.Transient(err)
	}

	// Events are swept by group_id, not by the group's events list:
	// a crash between an event insert and the back-reference update
	// can leave an event the list does not know about.
	cur, err := s.events.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return apperr.Transient(err)
	}
	var evs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &evs); err != nil {
		return apperr.Transient(err)
	}
	if len(evs) > 0 {
		ids := make([]primitive.ObjectID, len(evs))
		for i, e := range evs {
			ids[i] = e.ID
		}
		_, err = s.users.UpdateMany(ctx,
			bson.M{"events_attending": bson.M{"$in": ids}},
			bson.M{
				"$pull": bson.M{"events_attending": bson.M{"$in": ids}},
				"$set":  bson.M{"updated_at": now},
			})
		if err != nil {
			return apperr.Transient(err)
		}
	}
	if _, err := s.events.DeleteMany(ctx, bson.M{"group_id": groupID}); err != nil {
		return apperr.Transient(err)
	}

	_, err = s.users.UpdateMany(ctx, bson.M{}, bson.M{
		"$pull": bson.M{"groups": groupID, "group_join_requests": groupID},
	})
	if err != nil {
		return apperr.Transient(err)
	}

	if _, err := s.groups.DeleteOne(ctx, bson.M{"_id": groupID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// ListOwnedBy returns the groups owned by a user. The user-delete
// cascade deletes each through Delete before removing the user.
func (s *Store) ListOwnedBy(ctx context.Context, ownerID primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.groups.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// RemoveUserEverywhere strips a departing user from the member, admin,
// and join-request sets of every group they do not own, and from the
// member sets of the companion chats. Owned groups must already be
// gone.
func (s *Store) RemoveUserEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.groups.UpdateMany(ctx, bson.M{}, bson.M{
		"$pull": bson.M{"members": userID, "admins": userID, "join_requests": userID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.chats.UpdateMany(ctx,
		bson.M{"type": models.ChatTypeGroup},
		bson.M{"$pull": bson.M{"members": userID}})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// ListForMember returns groups where the user is a member.
func (s *Store) ListForMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.groups.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}
