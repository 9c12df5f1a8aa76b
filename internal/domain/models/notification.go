// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types emitted by the mutation handlers.
const (
	NotifFriendRequest         = "friendRequest"
	NotifFriendRequestAccepted = "friendRequestAccepted"
	NotifGroupJoinRequest      = "groupJoinRequest"
	NotifGroupJoinAccepted     = "groupJoinAccepted"
	NotifGroupAdminAdded       = "groupAdminAdded"
	NotifGroupDeleted          = "groupDeleted"
	NotifEventCreated          = "eventCreated"
	NotifEventApproved         = "eventApproved"
	NotifEventDeleted          = "eventDeleted"
	NotifChatMessage           = "chatMessage"
)

// RelatedEntity points a notification at the aggregate it is about.
type RelatedEntity struct {
	Type string             `bson:"type" json:"type"` // user | group | chat | event
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// Notification is created only by the notify consumer, never by the
// mutation path itself.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	Type        string              `bson:"type" json:"type"`
	Message     string              `bson:"message" json:"message"`
	SenderID    *primitive.ObjectID `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	Related     *RelatedEntity      `bson:"related,omitempty" json:"related,omitempty"`
	Read        bool                `bson:"read" json:"read"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
