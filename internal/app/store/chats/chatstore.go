// internal/app/store/chats/chatstore.go
package chatstore

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/sanitize"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// summaryMax caps the denormalized last-message preview on the chat
// document.
const summaryMax = 140

// Store mutates chats, their append-only message logs, and per-member
// read markers.
type Store struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	reads    *mongo.Collection
	users    *mongo.Collection
	groups   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
		reads:    db.Collection("chat_reads"),
		users:    db.Collection("users"),
		groups:   db.Collection("groups"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Chat, error) {
	var c models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Chat{}, apperr.NotFound("chat not found")
		}
		return models.Chat{}, apperr.Transient(err)
	}
	return c, nil
}

func (s *Store) getUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Transient(err)
	}
	return u, nil
}

// CreatePrivate opens a two-member chat between friends. Creating a
// chat that already exists for the pair returns the existing chat, so
// double-clicks and retries are harmless.
func (s *Store) CreatePrivate(ctx context.Context, userID, otherID primitive.ObjectID) (models.Chat, error) {
	if userID == otherID {
		return models.Chat{}, apperr.Validation("cannot open a chat with yourself")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return models.Chat{}, err
	}
	if _, err := s.getUser(ctx, otherID); err != nil {
		return models.Chat{}, err
	}
	if !user.HasFriend(otherID) {
		return models.Chat{}, apperr.Forbidden("can only open a chat with a friend")
	}

	var existing models.Chat
	err = s.chats.FindOne(ctx, bson.M{
		"type":    models.ChatTypePrivate,
		"members": bson.M{"$all": bson.A{userID, otherID}},
	}).Decode(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, apperr.Transient(err)
	}

	now := time.Now().UTC()
	chat := models.Chat{
		ID:        primitive.NewObjectID(),
		Type:      models.ChatTypePrivate,
		Members:   []primitive.ObjectID{userID, otherID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return models.Chat{}, apperr.Transient(err)
	}
	for _, id := range chat.Members {
		_, err := s.users.UpdateByID(ctx, id, bson.M{
			"$addToSet": bson.M{"private_chats": chat.ID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return models.Chat{}, apperr.Transient(err)
		}
	}
	return chat, nil
}

// AddMember adds a user to a group chat. Private chat membership is
// fixed at creation.
func (s *Store) AddMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if c.Type != models.ChatTypeGroup {
		return apperr.Conflict("private chat membership cannot change")
	}
	if c.HasMember(userID) {
		return apperr.Conflict("already a member of this chat")
	}
	_, err = s.chats.UpdateByID(ctx, chatID, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// RemoveMember removes a user from a group chat and deletes their read
// marker.
func (s *Store) RemoveMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if c.Type != models.ChatTypeGroup {
		return apperr.Conflict("private chat membership cannot change")
	}
	if !c.HasMember(userID) {
		return apperr.NotFound("not a member of this chat")
	}
	_, err = s.chats.UpdateByID(ctx, chatID, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return apperr.Transient(err)
	}
	if _, err := s.reads.DeleteOne(ctx, bson.M{"chat_id": chatID, "user_id": userID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// SendMessage appends a message and refreshes the chat's denormalized
// summary. The sender must be a current chat member, and for group
// chats a current group member as well; a member who left the group
// but whose chat removal lagged cannot post.
func (s *Store) SendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, body string) (models.Message, error) {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !c.HasMember(senderID) {
		return models.Message{}, apperr.Forbidden("not a member of this chat")
	}
	if c.Type == models.ChatTypeGroup {
		var g models.Group
		if err := s.groups.FindOne(ctx, bson.M{"_id": c.GroupID}).Decode(&g); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.Message{}, apperr.NotFound("group not found")
			}
			return models.Message{}, apperr.Transient(err)
		}
		if !g.HasMember(senderID) {
			return models.Message{}, apperr.Forbidden("not a member of this group")
		}
	}

	body = sanitize.Text(body)
	if body == "" {
		return models.Message{}, apperr.Validation("message body is empty")
	}

	now := time.Now().UTC()
	msg := models.Message{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: now,
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, apperr.Transient(err)
	}

	summary := body
	if len(summary) > summaryMax {
		// Cut on a rune boundary so the stored preview stays valid
		// UTF-8.
		cut := summaryMax
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}
	_, err = s.chats.UpdateByID(ctx, chatID, bson.M{"$set": bson.M{
		"last_message":    summary,
		"last_message_at": now,
		"updated_at":      now,
	}})
	if err != nil {
		return models.Message{}, apperr.Transient(err)
	}
	return msg, nil
}

// ListMessages returns up to limit messages, newest first, older than
// before when set. Only chat members may read.
func (s *Store) ListMessages(ctx context.Context, chatID, userID primitive.ObjectID, before time.Time, limit int64) ([]models.Message, error) {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasMember(userID) {
		return nil, apperr.Forbidden("not a member of this chat")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"chat_id": chatID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	cur, err := s.messages.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// MarkRead upserts the member's last-read marker for the chat.
func (s *Store) MarkRead(ctx context.Context, chatID, userID primitive.ObjectID) error {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !c.HasMember(userID) {
		return apperr.Forbidden("not a member of this chat")
	}
	_, err = s.reads.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "user_id": userID},
		bson.M{"$set": bson.M{"last_read_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// LastRead returns the member's read marker, or the zero time when the
// chat has never been marked read.
func (s *Store) LastRead(ctx context.Context, chatID, userID primitive.ObjectID) (time.Time, error) {
	var marker models.ChatRead
	err := s.reads.FindOne(ctx, bson.M{"chat_id": chatID, "user_id": userID}).Decode(&marker)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, nil
		}
		return time.Time{}, apperr.Transient(err)
	}
	return marker.LastReadAt, nil
}

// ListForUser returns the chats the user belongs to, most recently
// active first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	cur, err := s.chats.Find(ctx, bson.M{"members": userID},
		options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}}))
	if err != nil {
		return nil, apperr.Transient(err)
	}
	var out []models.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Transient(err)
	}
	return out, nil
}

// DeletePrivate deletes a private chat with its messages and read
// markers and clears both members' back-references. Either member may
// delete; group chats only go away with their group.
func (s *Store) DeletePrivate(ctx context.Context, chatID, userID primitive.ObjectID) error {
	c, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if c.Type != models.ChatTypePrivate {
		return apperr.Conflict("only private chats can be deleted directly")
	}
	if !c.HasMember(userID) {
		return apperr.Forbidden("not a member of this chat")
	}
	return s.deletePrivate(ctx, c)
}

func (s *Store) deletePrivate(ctx context.Context, c models.Chat) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"chat_id": c.ID}); err != nil {
		return apperr.Transient(err)
	}
	if _, err := s.reads.DeleteMany(ctx, bson.M{"chat_id": c.ID}); err != nil {
		return apperr.Transient(err)
	}
	if len(c.Members) > 0 {
		_, err := s.users.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": c.Members}},
			bson.M{
				"$pull": bson.M{"private_chats": c.ID},
				"$set":  bson.M{"updated_at": time.Now().UTC()},
			})
		if err != nil {
			return apperr.Transient(err)
		}
	}
	if _, err := s.chats.DeleteOne(ctx, bson.M{"_id": c.ID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// RemoveUserEverywhere deletes the departing user's private chats
// outright (a private chat cannot outlive either member) and drops
// their remaining read markers. Group chat membership is handled by the
// group cascade.
func (s *Store) RemoveUserEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	cur, err := s.chats.Find(ctx, bson.M{"type": models.ChatTypePrivate, "members": userID})
	if err != nil {
		return apperr.Transient(err)
	}
	var cs []models.Chat
	if err := cur.All(ctx, &cs); err != nil {
		return apperr.Transient(err)
	}
	for _, c := range cs {
		if err := s.deletePrivate(ctx, c); err != nil {
			return err
		}
	}
	if _, err := s.reads.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return apperr.Transient(err)
	}
	return nil
}
