package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type capturingPublisher struct {
	published []Envelope
	failFor   map[primitive.ObjectID]bool
}

func (p *capturingPublisher) Publish(_ context.Context, env Envelope) error {
	if p.failFor[env.RecipientID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, env)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestDispatch_OneEnvelopePerRecipient(t *testing.T) {
	pub := &capturingPublisher{}
	d := NewDispatcher(pub, zap.NewNop())

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	sender := primitive.NewObjectID()
	related := &models.RelatedEntity{Type: "group", ID: primitive.NewObjectID()}

	sent := d.Dispatch(context.Background(), []primitive.ObjectID{a, b},
		models.NotifGroupJoinAccepted, "request accepted", &sender, related)

	require.Len(t, sent, 2)
	require.Len(t, pub.published, 2)
	assert.Equal(t, a, pub.published[0].RecipientID)
	assert.Equal(t, b, pub.published[1].RecipientID)
	for _, env := range pub.published {
		assert.NotEmpty(t, env.ID)
		assert.Equal(t, models.NotifGroupJoinAccepted, env.Type)
		assert.Equal(t, &sender, env.SenderID)
		assert.Equal(t, related, env.Related)
	}
}

func TestDispatch_FailuresAreExcludedNotRaised(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	pub := &capturingPublisher{failFor: map[primitive.ObjectID]bool{a: true}}
	d := NewDispatcher(pub, zap.NewNop())

	sent := d.Dispatch(context.Background(), []primitive.ObjectID{a, b},
		models.NotifFriendRequest, "new friend request", nil, nil)

	require.Len(t, sent, 1)
	assert.Equal(t, b, sent[0].RecipientID)
}

func TestDispatch_SkipsSender(t *testing.T) {
	pub := &capturingPublisher{}
	d := NewDispatcher(pub, zap.NewNop())

	sender := primitive.NewObjectID()
	other := primitive.NewObjectID()

	sent := d.Dispatch(context.Background(), []primitive.ObjectID{sender, other},
		models.NotifChatMessage, "new message", &sender, nil)

	require.Len(t, sent, 1)
	assert.Equal(t, other, sent[0].RecipientID)
}

func TestWriterPublisher_DeliversToWriter(t *testing.T) {
	var got []Envelope
	w := writerFunc(func(_ context.Context, env Envelope) error {
		got = append(got, env)
		return nil
	})
	d := NewDispatcher(WriterPublisher{W: w}, zap.NewNop())

	recipient := primitive.NewObjectID()
	d.Dispatch(context.Background(), []primitive.ObjectID{recipient},
		models.NotifEventApproved, "event approved", nil, nil)

	require.Len(t, got, 1)
	assert.Equal(t, recipient, got[0].RecipientID)
}

type writerFunc func(ctx context.Context, env Envelope) error

func (f writerFunc) Write(ctx context.Context, env Envelope) error { return f(ctx, env) }
