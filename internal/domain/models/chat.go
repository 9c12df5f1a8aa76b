// internal/domain/models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat types.
const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

// Chat is a conversation. Private chats have exactly two members, fixed
// at creation. Group chats are companions to a Group (GroupID set) and
// their member set mirrors the group's members.
//
// LastMessage/LastMessageAt are a derived summary of the messages
// collection; they tolerate short staleness.
type Chat struct {
	ID      primitive.ObjectID   `bson:"_id" json:"id"`
	Type    string               `bson:"type" json:"type"` // private | group
	GroupID primitive.ObjectID   `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Members []primitive.ObjectID `bson:"members" json:"members"`

	LastMessage   string    `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt time.Time `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is a chat member.
func (c Chat) HasMember(userID primitive.ObjectID) bool { return containsID(c.Members, userID) }

// Message is one entry in a chat's append-only log.
type Message struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	ChatID   primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Body     string             `bson:"body" json:"body"` // sanitized before insert

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ChatRead is a per-(chat, member) last-read marker.
type ChatRead struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	LastReadAt time.Time `bson:"last_read_at" json:"last_read_at"`
}
