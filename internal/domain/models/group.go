// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a campus club.
//
// Invariants maintained by the group store:
//   - OwnerID is immutable and always present in Admins.
//   - Admins is a subset of Members.
//   - JoinRequests is disjoint from Members.
//   - ChatID points at the companion group chat whose member set mirrors
//     Members.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	Members      []primitive.ObjectID `bson:"members" json:"members"`
	Admins       []primitive.ObjectID `bson:"admins" json:"admins"`
	JoinRequests []primitive.ObjectID `bson:"join_requests" json:"join_requests"`
	Events       []primitive.ObjectID `bson:"events" json:"events"`

	ChatID primitive.ObjectID `bson:"chat_id,omitempty" json:"chat_id"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is in the group's member set.
func (g Group) HasMember(userID primitive.ObjectID) bool { return containsID(g.Members, userID) }

// HasAdmin reports whether userID is in the group's admin set.
func (g Group) HasAdmin(userID primitive.ObjectID) bool { return containsID(g.Admins, userID) }

// HasJoinRequest reports whether userID has a pending join request.
func (g Group) HasJoinRequest(userID primitive.ObjectID) bool {
	return containsID(g.JoinRequests, userID)
}
