// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a club event. Attendees must be group members at RSVP time;
// the linkage is not re-validated when membership later changes.
type Event struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"title_ci"`
	Description string             `bson:"description" json:"description"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	StartsAt    time.Time          `bson:"starts_at" json:"starts_at"`

	Approved  bool                 `bson:"approved" json:"approved"`
	Attendees []primitive.ObjectID `bson:"attendees" json:"attendees"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasAttendee reports whether userID has an active RSVP.
func (e Event) HasAttendee(userID primitive.ObjectID) bool { return containsID(e.Attendees, userID) }
