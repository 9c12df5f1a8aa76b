// internal/domain/models/suggestion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Suggestion reasons, in ranking order.
const (
	SuggestReasonSharedCourse   = "sharedCourse"
	SuggestReasonSharedInterest = "sharedInterest"
	SuggestReasonSharedGroup    = "sharedGroup"
)

// SuggestedFriend is advisory output of the suggestion generator.
// Deleted when consumed or dismissed by its owner.
type SuggestedFriend struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	SuggestedUserID primitive.ObjectID `bson:"suggested_user_id" json:"suggested_user_id"`
	Reason          string             `bson:"reason" json:"reason"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
