// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/sanitize"
	"github.com/dalemusser/clubhub/internal/app/system/txn"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store mutates events and the attendee state mirrored onto users and
// the owning group.
type Store struct {
	events *mongo.Collection
	groups *mongo.Collection
	users  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		events: db.Collection("events"),
		groups: db.Collection("groups"),
		users:  db.Collection("users"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, apperr.NotFound("event not found")
		}
		return models.Event{}, apperr.Transient(err)
	}
	return e, nil
}

func (s *Store) getGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, apperr.Transient(err)
	}
	return g, nil
}

// Create inserts an unapproved event for a group. The creator must be a
// current group member; approval is a separate site-admin step.
func (s *Store) Create(ctx context.Context, groupID, creatorID primitive.ObjectID, title, description, location string, startsAt time.Time) (models.Event, error) {
	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return models.Event{}, err
	}
	if !g.HasMember(creatorID) {
		return models.Event{}, apperr.Forbidden("only group members can create events")
	}

	title = sanitize.Text(title)
	if title == "" {
		return models.Event{}, apperr.Validation("event title is required")
	}
	if startsAt.IsZero() {
		return models.Event{}, apperr.Validation("event start time is required")
	}

	now := time.Now().UTC()
	e := models.Event{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		CreatorID:   creatorID,
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: sanitize.Rich(description),
		Location:    sanitize.Text(location),
		StartsAt:    startsAt.UTC(),
		Approved:    false,
		Attendees:   []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.events.InsertOne(ctx, e); err != nil {
		return models.Event{}, apperr.Transient(err)
	}
	_, err = s.groups.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"events": e.ID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return models.Event{}, apperr.Transient(err)
	}
	return e, nil
}

// Approve marks the event visible for RSVPs. Approving an already
// approved event is a no-op success.
func (s *Store) Approve(ctx context.Context, eventID primitive.ObjectID) error {
	res, err := s.events.UpdateByID(ctx, eventID, bson.M{"$set": bson.M{
		"approved":   true,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// UpdateDetails applies an allowlisted edit to title, description,
// location, or start time.
func (s *Store) UpdateDetails(ctx context.Context, eventID primitive.ObjectID, title, description, location *string, startsAt *time.Time) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if title != nil {
		clean := sanitize.Text(*title)
		if clean == "" {
			return apperr.Validation("event title cannot be empty")
		}
		set["title"] = clean
		set["title_ci"] = text.Fold(clean)
	}
	if description != nil {
		set["description"] = sanitize.Rich(*description)
	}
	if location != nil {
		set["location"] = sanitize.Text(*location)
	}
	if startsAt != nil {
		if startsAt.IsZero() {
			return apperr.Validation("event start time cannot be empty")
		}
		set["starts_at"] = startsAt.UTC()
	}
	res, err := s.events.UpdateByID(ctx, eventID, bson.M{"$set": set})
	if err != nil {
		return apperr.Transient(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// RSVP adds the user to the attendee set and mirrors the event onto the
// user. Both documents change together. The user must be a member of
// the owning group at RSVP time; later membership changes do not
// revisit the attendee set.
func (s *Store) RSVP(ctx context.Context, eventID, userID primitive.ObjectID) error {
	err := txn.Run(ctx, s.events.Database().Client(), func(ctx context.Context) error {
		e, err := s.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if !e.Approved {
			return apperr.Conflict("event is not yet approved")
		}
		if e.HasAttendee(userID) {
			return apperr.Conflict("already attending this event")
		}
		g, err := s.getGroup(ctx, e.GroupID)
		if err != nil {
			return err
		}
		if !g.HasMember(userID) {
			return apperr.Forbidden("only group members can attend")
		}

		now := time.Now().UTC()
		_, err = s.events.UpdateByID(ctx, eventID, bson.M{
			"$addToSet": bson.M{"attendees": userID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		res, err := s.users.UpdateByID(ctx, userID, bson.M{
			"$addToSet": bson.M{"events_attending": eventID},
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

// CancelRSVP removes the user from the attendee set and the mirrored
// entry from the user, returning the pair to the pre-RSVP state.
func (s *Store) CancelRSVP(ctx context.Context, eventID, userID primitive.ObjectID) error {
	err := txn.Run(ctx, s.events.Database().Client(), func(ctx context.Context) error {
		e, err := s.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if !e.HasAttendee(userID) {
			return apperr.NotFound("not attending this event")
		}

		now := time.Now().UTC()
		_, err = s.events.UpdateByID(ctx, eventID, bson.M{
			"$pull": bson.M{"attendees": userID},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return apperr.Transient(err)
		}
		_, err = s.users.UpdateByID(ctx, userID, bson.M{
			"$pull": bson.M{"events_attending": eventID},
			"$set":  bson.M{"updated_at": now},
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

// Delete cascades the event away: attendee back-references, the
// group's event list, then the document. Re-runnable if a step fails.
func (s *Store) Delete(ctx context.Context, eventID primitive.ObjectID) error {
	e, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.users.UpdateMany(ctx,
		bson.M{"events_attending": eventID},
		bson.M{"$pull": bson.M{"events_attending": eventID}, "$set": bson.M{"updated_at": now}})
	if err != nil {
		return apperr.Transient(err)
	}
	_, err = s.groups.UpdateByID(ctx, e.GroupID, bson.M{
		"$pull": bson.M{"events": eventID},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	if _, err := s.events.DeleteOne(ctx, bson.M{"_id": eventID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// ListForGroup returns the group's events, soonest first.
func (s *Store) ListForGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Event, error) {
	cur, err := s.events.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// PullAttendee strips a departing user from every attendee set. Used by
// the user-delete cascade.
func (s *Store) PullAttendee(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.events.UpdateMany(ctx,
		bson.M{"attendees": userID},
		bson.M{"$pull": bson.M{"attendees": userID}})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}
