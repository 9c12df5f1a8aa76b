package users_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/features/users"
	chatstore "github.com/dalemusser/clubhub/internal/app/store/chats"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	friendstore "github.com/dalemusser/clubhub/internal/app/store/friends"
	groupstore "github.com/dalemusser/clubhub/internal/app/store/groups"
	notificationstore "github.com/dalemusser/clubhub/internal/app/store/notifications"
	suggestionstore "github.com/dalemusser/clubhub/internal/app/store/suggestions"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *users.Handler {
	return users.NewHandler(
		userstore.New(db),
		groupstore.New(db),
		chatstore.New(db),
		eventstore.New(db),
		notificationstore.New(db),
		suggestionstore.New(db),
		zap.NewNop(),
	)
}

func TestHandleRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	body := `{"full_name":"Ada Park","email":"Ada@Example.EDU","password":"hunter2hunter2"}`
	r := httptest.NewRequest("POST", "/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, r)

	if w.Code != 201 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data models.User `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Email != "ada@example.edu" {
		t.Errorf("email = %q, want normalized lowercase", resp.Data.Email)
	}
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("password material must never appear in responses")
	}
}

func TestHandleRegister_ShortPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	body := `{"full_name":"Ada Park","email":"ada@example.edu","password":"short"}`
	r := httptest.NewRequest("POST", "/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, r)

	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServeUser_PrivacyGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	viewer := fx.CreateUser(ctx, "Ada Park", "ada@example.edu")
	target := fx.CreateUser(ctx, "Ben Oduya", "ben@example.edu")
	h := newHandler(db)

	view := func() int {
		r := httptest.NewRequest("GET", "/", nil)
		r = testutil.AsUser(r, viewer.ID)
		r = testutil.WithChiURLParam(r, "userID", target.ID.Hex())
		w := httptest.NewRecorder()
		h.ServeUser(w, r)
		return w.Code
	}

	// Default privacy is everyone.
	if code := view(); code != 200 {
		t.Errorf("everyone: status = %d, want 200", code)
	}

	if err := userstore.New(db).UpdateSettings(ctx, target.ID, models.PrivacyFriends); err != nil {
		t.Fatalf("set privacy: %v", err)
	}
	if code := view(); code != 404 {
		t.Errorf("friends, not a friend: status = %d, want 404", code)
	}

	fs := friendstore.New(db)
	if err := fs.SendRequest(ctx, viewer.ID, target.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := fs.AcceptRequest(ctx, target.ID, viewer.ID); err != nil {
		t.Fatalf("accept request: %v", err)
	}
	if code := view(); code != 200 {
		t.Errorf("friends, is a friend: status = %d, want 200", code)
	}

	if err := userstore.New(db).UpdateSettings(ctx, target.ID, models.PrivacyNone); err != nil {
		t.Fatalf("set privacy: %v", err)
	}
	if code := view(); code != 404 {
		t.Errorf("none: status = %d, want 404", code)
	}
}

func TestServeUser_BlockedHidesProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	viewer := fx.CreateUser(ctx, "Ada Park", "ada@example.edu")
	target := fx.CreateUser(ctx, "Ben Oduya", "ben@example.edu")
	h := newHandler(db)

	if err := friendstore.New(db).Block(ctx, target.ID, viewer.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r = testutil.AsUser(r, viewer.ID)
	r = testutil.WithChiURLParam(r, "userID", target.ID.Hex())
	w := httptest.NewRecorder()
	h.ServeUser(w, r)
	if w.Code != 404 {
		t.Errorf("blocked viewer status = %d, want 404", w.Code)
	}
}

func TestHandleDelete_FullCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	victim := fx.CreateUser(ctx, "Ada Park", "ada@example.edu")
	friend := fx.CreateUser(ctx, "Ben Oduya", "ben@example.edu")
	h := newHandler(db)

	// Friendship and a private chat.
	fs := friendstore.New(db)
	if err := fs.SendRequest(ctx, victim.ID, friend.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := fs.AcceptRequest(ctx, friend.ID, victim.ID); err != nil {
		t.Fatalf("accept request: %v", err)
	}
	if _, err := chatstore.New(db).CreatePrivate(ctx, victim.ID, friend.ID); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	// A group the victim owns, with the friend as a member.
	gs := groupstore.New(db)
	owned, err := gs.Create(ctx, victim.ID, "Chess Club", "")
	if err != nil {
		t.Fatalf("create owned group: %v", err)
	}
	if err := gs.SendJoinRequest(ctx, owned.ID, friend.ID); err != nil {
		t.Fatalf("join request: %v", err)
	}
	if err := gs.AcceptJoinRequest(ctx, owned.ID, friend.ID); err != nil {
		t.Fatalf("accept join: %v", err)
	}

	// A group the friend owns, with the victim as a member and an RSVP.
	other, err := gs.Create(ctx, friend.ID, "Hiking Club", "")
	if err != nil {
		t.Fatalf("create other group: %v", err)
	}
	if err := gs.SendJoinRequest(ctx, other.ID, victim.ID); err != nil {
		t.Fatalf("join request: %v", err)
	}
	if err := gs.AcceptJoinRequest(ctx, other.ID, victim.ID); err != nil {
		t.Fatalf("accept join: %v", err)
	}
	es := eventstore.New(db)
	ev, err := es.Create(ctx, other.ID, friend.ID, "Summit Hike", "", "", fx.GetGroup(ctx, other.ID).CreatedAt.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := es.Approve(ctx, ev.ID); err != nil {
		t.Fatalf("approve event: %v", err)
	}
	if err := es.RSVP(ctx, ev.ID, victim.ID); err != nil {
		t.Fatalf("rsvp: %v", err)
	}

	r := httptest.NewRequest("DELETE", "/", nil)
	r = testutil.AsUser(r, victim.ID)
	r = testutil.WithChiURLParam(r, "userID", victim.ID.Hex())
	w := httptest.NewRecorder()
	h.HandleDelete(w, r)
	if w.Code != 200 {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}

	// The user document is gone.
	if n := count(t, db, "users", bson.M{"_id": victim.ID}); n != 0 {
		t.Error("user document should be deleted")
	}
	// The owned group and its companion chat went with it.
	if n := count(t, db, "groups", bson.M{"_id": owned.ID}); n != 0 {
		t.Error("owned group should be deleted")
	}
	// The other group survives without the victim.
	g := fx.GetGroup(ctx, other.ID)
	if g.HasMember(victim.ID) {
		t.Error("victim should be out of the surviving group")
	}
	// No RSVP back-reference remains.
	if got := fx.GetEvent(ctx, ev.ID); got.HasAttendee(victim.ID) {
		t.Error("victim should be off the attendee list")
	}
	// The friend no longer lists the victim anywhere.
	f := fx.GetUser(ctx, friend.ID)
	if f.HasFriend(victim.ID) {
		t.Error("friendship back-reference should be cleared")
	}
	// No chat still carries the victim, and the private chat is gone
	// outright rather than surviving with a single member.
	if n := count(t, db, "chats", bson.M{"members": victim.ID}); n != 0 {
		t.Error("no chat should still list the victim")
	}
	if n := count(t, db, "chats", bson.M{"type": models.ChatTypePrivate}); n != 0 {
		t.Error("the victim's private chat should be deleted, not shrunk")
	}
	if f2 := fx.GetUser(ctx, friend.ID); len(f2.PrivateChats) != 0 {
		t.Error("the friend still references the deleted private chat")
	}
}

func TestHandleDelete_SelfOrSiteAdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	a := fx.CreateUser(ctx, "Ada Park", "ada@example.edu")
	b := fx.CreateUser(ctx, "Ben Oduya", "ben@example.edu")
	admin := fx.CreateAdmin(ctx, "Dean Ward", "dean@example.edu")
	h := newHandler(db)

	r := httptest.NewRequest("DELETE", "/", nil)
	r = testutil.AsUser(r, a.ID)
	r = testutil.WithChiURLParam(r, "userID", b.ID.Hex())
	w := httptest.NewRecorder()
	h.HandleDelete(w, r)
	if w.Code != 403 {
		t.Errorf("peer delete status = %d, want 403", w.Code)
	}

	r = httptest.NewRequest("DELETE", "/", nil)
	r = testutil.AsAdmin(r, admin.ID)
	r = testutil.WithChiURLParam(r, "userID", b.ID.Hex())
	w = httptest.NewRecorder()
	h.HandleDelete(w, r)
	if w.Code != 200 {
		t.Fatalf("admin delete status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleUpdateSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	user := fx.CreateUser(ctx, "Ada Park", "ada@example.edu")
	h := newHandler(db)

	r := httptest.NewRequest("PATCH", "/users/me/settings", strings.NewReader(`{"privacy":"friends"}`))
	r = testutil.AsUser(r, user.ID)
	w := httptest.NewRecorder()
	h.HandleUpdateSettings(w, r)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := fx.GetUser(ctx, user.ID); got.Settings.Privacy != models.PrivacyFriends {
		t.Errorf("privacy = %q", got.Settings.Privacy)
	}

	r = httptest.NewRequest("PATCH", "/users/me/settings", strings.NewReader(`{"privacy":"public"}`))
	r = testutil.AsUser(r, user.ID)
	w = httptest.NewRecorder()
	h.HandleUpdateSettings(w, r)
	if w.Code != 400 {
		t.Errorf("invalid privacy status = %d, want 400", w.Code)
	}
}

func count(t *testing.T, db *mongo.Database, coll string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}
