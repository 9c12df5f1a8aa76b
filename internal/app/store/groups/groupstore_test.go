package groupstore

import (
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_ProvisionsCompanionChat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive Owner", "olive@example.edu")

	g, err := s.Create(ctx, owner.ID, "Chess Club", "<p>We play chess.</p><script>x()</script>")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.NameCI != "chess club" {
		t.Errorf("folded name = %q", g.NameCI)
	}
	if g.Description != "<p>We play chess.</p>" {
		t.Errorf("description not sanitized: %q", g.Description)
	}
	if !g.HasMember(owner.ID) || !g.HasAdmin(owner.ID) || g.OwnerID != owner.ID {
		t.Error("owner must be member, admin, and owner")
	}

	chat := fx.GetChat(ctx, g.ChatID)
	if chat.Type != models.ChatTypeGroup || chat.GroupID != g.ID {
		t.Errorf("companion chat not linked: type=%q group=%s", chat.Type, chat.GroupID.Hex())
	}
	if !chat.HasMember(owner.ID) {
		t.Error("owner missing from companion chat")
	}
	if got := fx.GetUser(ctx, owner.ID); len(got.Groups) != 1 || got.Groups[0] != g.ID {
		t.Error("group not mirrored onto owner")
	}
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")

	if _, err := s.Create(ctx, owner.ID, "Chess Club", ""); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := s.Create(ctx, owner.ID, "CHESS club", "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("want conflict on duplicate name, got %v", err)
	}
}

func TestJoinRequestLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	joiner := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	g, err := s.Create(ctx, owner.ID, "Chess Club", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SendJoinRequest(ctx, g.ID, joiner.ID); err != nil {
		t.Fatalf("SendJoinRequest: %v", err)
	}
	if got := fx.GetGroup(ctx, g.ID); !got.HasJoinRequest(joiner.ID) {
		t.Error("group missing join request")
	}
	if got := fx.GetUser(ctx, joiner.ID); len(got.GroupJoinRequests) != 1 {
		t.Error("user missing mirrored join request")
	}

	if err := s.SendJoinRequest(ctx, g.ID, joiner.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate request: want conflict, got %v", err)
	}
	if err := s.SendJoinRequest(ctx, g.ID, owner.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("member requesting: want conflict, got %v", err)
	}

	if err := s.AcceptJoinRequest(ctx, g.ID, joiner.ID); err != nil {
		t.Fatalf("AcceptJoinRequest: %v", err)
	}
	got := fx.GetGroup(ctx, g.ID)
	if !got.HasMember(joiner.ID) || got.HasJoinRequest(joiner.ID) {
		t.Error("accept did not promote request to membership")
	}
	if gotUser := fx.GetUser(ctx, joiner.ID); len(gotUser.Groups) != 1 || len(gotUser.GroupJoinRequests) != 0 {
		t.Error("accept not mirrored onto user")
	}
	if chat := fx.GetChat(ctx, g.ChatID); !chat.HasMember(joiner.ID) {
		t.Error("accept did not add member to companion chat")
	}

	if err := s.AcceptJoinRequest(ctx, g.ID, joiner.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("re-accept: want not-found, got %v", err)
	}
}

func TestAcceptJoinRequest_MissingChatAborts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	joiner := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	g, err := s.Create(ctx, owner.ID, "Chess Club", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SendJoinRequest(ctx, g.ID, joiner.ID); err != nil {
		t.Fatalf("SendJoinRequest: %v", err)
	}

	if _, err := db.Collection("chats").DeleteOne(ctx, bson.M{"_id": g.ChatID}); err != nil {
		t.Fatalf("delete companion chat: %v", err)
	}

	if err := s.AcceptJoinRequest(ctx, g.ID, joiner.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("accept without chat: want not-found, got %v", err)
	}

	// No half-applied membership.
	got := fx.GetGroup(ctx, g.ID)
	if got.HasMember(joiner.ID) {
		t.Error("membership granted without a companion chat")
	}
	if !got.HasJoinRequest(joiner.ID) {
		t.Error("join request should survive the aborted accept")
	}
	if u := fx.GetUser(ctx, joiner.ID); len(u.Groups) != 0 {
		t.Error("group mirrored onto user despite the abort")
	}
}

func TestRemoveJoinRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	joiner := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	g, _ := s.Create(ctx, owner.ID, "Chess Club", "")

	if err := s.SendJoinRequest(ctx, g.ID, joiner.ID); err != nil {
		t.Fatalf("SendJoinRequest: %v", err)
	}
	if err := s.RemoveJoinRequest(ctx, g.ID, joiner.ID); err != nil {
		t.Fatalf("RemoveJoinRequest: %v", err)
	}
	if got := fx.GetUser(ctx, joiner.ID); len(got.GroupJoinRequests) != 0 {
		t.Error("mirrored request survived removal")
	}
	if err := s.RemoveJoinRequest(ctx, g.ID, joiner.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second removal: want not-found, got %v", err)
	}
}

func TestLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	member := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	g, _ := s.Create(ctx, owner.ID, "Chess Club", "")
	mustJoin(t, s, g, member)

	if err := s.AddAdmin(ctx, g.ID, member.ID); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	if err := s.Leave(ctx, g.ID, owner.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("owner leaving: want forbidden, got %v", err)
	}

	if err := s.Leave(ctx, g.ID, member.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	got := fx.GetGroup(ctx, g.ID)
	if got.HasMember(member.ID) || got.HasAdmin(member.ID) {
		t.Error("leaver still in member or admin set")
	}
	if chat := fx.GetChat(ctx, g.ChatID); chat.HasMember(member.ID) {
		t.Error("leaver still in companion chat")
	}
	if gotUser := fx.GetUser(ctx, member.ID); len(gotUser.Groups) != 0 {
		t.Error("group survived on leaver's document")
	}

	if err := s.Leave(ctx, g.ID, member.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("leaving twice: want not-found, got %v", err)
	}
}

func TestAdminLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	member := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	outsider := fx.CreateUser(ctx, "Out", "out@example.edu")
	g, _ := s.Create(ctx, owner.ID, "Chess Club", "")
	mustJoin(t, s, g, member)

	if err := s.AddAdmin(ctx, g.ID, outsider.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("non-member promotion: want conflict, got %v", err)
	}
	if err := s.AddAdmin(ctx, g.ID, member.ID); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if err := s.AddAdmin(ctx, g.ID, member.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("double promotion: want conflict, got %v", err)
	}

	if err := s.RemoveAdmin(ctx, g.ID, owner.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("demoting owner: want forbidden, got %v", err)
	}
	if err := s.RemoveAdmin(ctx, g.ID, member.ID); err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}
	got := fx.GetGroup(ctx, g.ID)
	if got.HasAdmin(member.ID) {
		t.Error("demoted admin still in admin set")
	}
	if !got.HasMember(member.ID) {
		t.Error("demotion must not remove membership")
	}
	if err := s.RemoveAdmin(ctx, g.ID, member.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("double demotion: want not-found, got %v", err)
	}
}

func TestDelete_Cascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	member := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	requester := fx.CreateUser(ctx, "Req", "req@example.edu")
	g, _ := s.Create(ctx, owner.ID, "Chess Club", "")
	mustJoin(t, s, g, member)
	if err := s.SendJoinRequest(ctx, g.ID, requester.ID); err != nil {
		t.Fatalf("SendJoinRequest: %v", err)
	}

	// Seed chat traffic so the cascade has something to delete.
	if _, err := db.Collection("messages").InsertOne(ctx, bson.M{"chat_id": g.ChatID, "sender_id": owner.ID, "body": "hi"}); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	if _, err := db.Collection("chat_reads").InsertOne(ctx, bson.M{"chat_id": g.ChatID, "user_id": owner.ID}); err != nil {
		t.Fatalf("seed read marker: %v", err)
	}

	if err := s.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.GetByID(ctx, g.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("group still readable after delete: %v", err)
	}
	for _, coll := range []string{"chats", "messages", "chat_reads"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{})
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("%s not emptied by cascade: %d docs remain", coll, n)
		}
	}
	if got := fx.GetUser(ctx, member.ID); len(got.Groups) != 0 {
		t.Error("member back-reference survived cascade")
	}
	if got := fx.GetUser(ctx, requester.ID); len(got.GroupJoinRequests) != 0 {
		t.Error("join-request back-reference survived cascade")
	}

	if err := s.Delete(ctx, g.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("re-delete: want not-found, got %v", err)
	}
}

func TestDelete_SweepsEventsMissingFromGroupList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	s := New(db)
	owner := fx.CreateUser(ctx, "Olive", "olive@example.edu")
	member := fx.CreateUser(ctx, "Jess", "jess@example.edu")
	g, _ := s.Create(ctx, owner.ID, "Chess Club", "")
	mustJoin(t, s, g, member)

	// An event the group's events list never recorded, with an RSVP.
	evID := primitive.NewObjectID()
	_, err := db.Collection("events").InsertOne(ctx, bson.M{
		"_id":       evID,
		"group_id":  g.ID,
		"title":     "Blitz Night",
		"attendees": bson.A{member.ID},
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	_, err = db.Collection("users").UpdateByID(ctx, member.ID,
		bson.M{"$addToSet": bson.M{"events_attending": evID}})
	if err != nil {
		t.Fatalf("seed rsvp back-reference: %v", err)
	}

	if err := s.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	n, err := db.Collection("events").CountDocuments(ctx, bson.M{"group_id": g.ID})
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != 0 {
		t.Errorf("%d events survived the cascade", n)
	}
	if u := fx.GetUser(ctx, member.ID); len(u.EventsAttending) != 0 {
		t.Error("rsvp back-reference survived the cascade")
	}
}

func mustJoin(t *testing.T, s *Store, g models.Group, u models.User) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.SendJoinRequest(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("SendJoinRequest: %v", err)
	}
	if err := s.AcceptJoinRequest(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("AcceptJoinRequest: %v", err)
	}
}
