// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Privacy levels for a user's profile visibility.
const (
	PrivacyEveryone = "everyone"
	PrivacyFriends  = "friends"
	PrivacyNone     = "none"
)

// UserSettings holds per-user preferences.
type UserSettings struct {
	Privacy string `bson:"privacy" json:"privacy"` // everyone | friends | none
}

// User represents a platform member.
//
// Relationship state is denormalized onto the user document as ObjectID
// sets. The stores are responsible for keeping the mirrored sides of
// each relationship consistent:
//   - Friends is symmetric (A lists B iff B lists A).
//   - FriendRequestsOut on the sender mirrors FriendRequestsIn on the
//     receiver.
//   - For any counterpart, at most one of Friends / FriendRequestsIn /
//     FriendRequestsOut holds their key; a block clears all three.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"` // bcrypt hash
	Role       string             `bson:"role" json:"role"`            // admin | member
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	Friends           []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequestsIn  []primitive.ObjectID `bson:"friend_requests_in" json:"friend_requests_in"`
	FriendRequestsOut []primitive.ObjectID `bson:"friend_requests_out" json:"friend_requests_out"`
	BlockedUsers      []primitive.ObjectID `bson:"blocked_users" json:"blocked_users"`

	Groups            []primitive.ObjectID `bson:"groups" json:"groups"`
	GroupJoinRequests []primitive.ObjectID `bson:"group_join_requests" json:"group_join_requests"`
	PrivateChats      []primitive.ObjectID `bson:"private_chats" json:"private_chats"`
	EventsAttending   []primitive.ObjectID `bson:"events_attending" json:"events_attending"`

	// Suggestion inputs.
	Courses   []string `bson:"courses,omitempty" json:"courses,omitempty"`
	Interests []string `bson:"interests,omitempty" json:"interests,omitempty"`

	Settings UserSettings `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasFriend reports whether other is in the user's friends set.
func (u User) HasFriend(other primitive.ObjectID) bool { return containsID(u.Friends, other) }

// HasBlocked reports whether the user has blocked other.
func (u User) HasBlocked(other primitive.ObjectID) bool { return containsID(u.BlockedUsers, other) }

// HasIncomingRequest reports whether other has a pending request to the user.
func (u User) HasIncomingRequest(other primitive.ObjectID) bool {
	return containsID(u.FriendRequestsIn, other)
}

// HasOutgoingRequest reports whether the user has a pending request to other.
func (u User) HasOutgoingRequest(other primitive.ObjectID) bool {
	return containsID(u.FriendRequestsOut, other)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
