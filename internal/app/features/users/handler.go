// Package users exposes account registration, profiles, settings, and
// account deletion. Deletion orchestrates the cross-store cascade: the
// user store only cleans the users collection, so groups, chats,
// events, notifications, and suggestions are swept here.
package users

import (
	"context"
	"net/http"

	chatstore "github.com/dalemusser/clubhub/internal/app/store/chats"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	groupstore "github.com/dalemusser/clubhub/internal/app/store/groups"
	notificationstore "github.com/dalemusser/clubhub/internal/app/store/notifications"
	suggestionstore "github.com/dalemusser/clubhub/internal/app/store/suggestions"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/webutil"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler holds the user feature's dependencies.
type Handler struct {
	Users         *userstore.Store
	Groups        *groupstore.Store
	Chats         *chatstore.Store
	Events        *eventstore.Store
	Notifications *notificationstore.Store
	Suggestions   *suggestionstore.Store
	Log           *zap.Logger
}

// NewHandler constructs a users Handler.
func NewHandler(users *userstore.Store, groups *groupstore.Store, chats *chatstore.Store, events *eventstore.Store, notifications *notificationstore.Store, suggestions *suggestionstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Users:         users,
		Groups:        groups,
		Chats:         chats,
		Events:        events,
		Notifications: notifications,
		Suggestions:   suggestions,
		Log:           logger,
	}
}

// HandleRegister handles POST /users. The only unauthenticated route.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "user register")
	defer cancel()

	u, err := h.Users.Create(ctx, req.FullName, req.Email, req.Password)
	observe.Mutation("user.register", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, u)
}

// ServeMe handles GET /users/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user get")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, u)
}

// profileView is the trimmed projection served to other users.
type profileView struct {
	ID        primitive.ObjectID `json:"id"`
	FullName  string             `json:"full_name"`
	Courses   []string           `json:"courses,omitempty"`
	Interests []string           `json:"interests,omitempty"`
}

// ServeUser handles GET /users/{userID}. The target's privacy setting
// gates visibility; a block in either direction hides the profile
// entirely.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	targetID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile view")
	defer cancel()

	if targetID == id.UserID {
		h.ServeMe(w, r)
		return
	}

	target, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	viewer, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	// A hidden profile and a missing one are indistinguishable.
	if target.HasBlocked(id.UserID) || viewer.HasBlocked(targetID) {
		apperr.WriteError(w, apperr.NotFound("user %s not found", targetID.Hex()))
		return
	}
	switch target.Settings.Privacy {
	case models.PrivacyNone:
		apperr.WriteError(w, apperr.NotFound("user %s not found", targetID.Hex()))
		return
	case models.PrivacyFriends:
		if !target.HasFriend(id.UserID) {
			apperr.WriteError(w, apperr.NotFound("user %s not found", targetID.Hex()))
			return
		}
	}

	apperr.WriteJSON(w, http.StatusOK, profileView{
		ID:        target.ID,
		FullName:  target.FullName,
		Courses:   target.Courses,
		Interests: target.Interests,
	})
}

// HandleUpdateProfile handles PATCH /users/me/profile.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req struct {
		Courses   []string `json:"courses"`
		Interests []string `json:"interests"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile update")
	defer cancel()

	err := h.Users.UpdateProfile(ctx, id.UserID, req.Courses, req.Interests)
	observe.Mutation("user.update_profile", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleUpdateSettings handles PATCH /users/me/settings.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req struct {
		Privacy string `json:"privacy"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "settings update")
	defer cancel()

	err := h.Users.UpdateSettings(ctx, id.UserID, req.Privacy)
	observe.Mutation("user.update_settings", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleDelete handles DELETE /users/{userID}. Users delete themselves;
// site admins may delete anyone.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	targetID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if targetID != id.UserID && !id.IsSiteAdmin() {
		apperr.WriteError(w, apperr.Forbidden("only the account owner or a site admin may delete an account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "user delete cascade")
	defer cancel()

	err = h.deleteCascade(ctx, targetID)
	observe.Mutation("user.delete", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// deleteCascade removes the user and every trace of them. Owned groups
// go first (each runs its own cascade), then remaining memberships,
// chats, RSVPs, notifications, and suggestions, and finally the user
// document with its friend and block back-references.
func (h *Handler) deleteCascade(ctx context.Context, userID primitive.ObjectID) error {
	owned, err := h.Groups.ListOwnedBy(ctx, userID)
	if err != nil {
		return err
	}
	for _, g := range owned {
		if err := h.Groups.Delete(ctx, g.ID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}

	if err := h.Groups.RemoveUserEverywhere(ctx, userID); err != nil {
		return err
	}
	if err := h.Chats.RemoveUserEverywhere(ctx, userID); err != nil {
		return err
	}
	if err := h.Events.PullAttendee(ctx, userID); err != nil {
		return err
	}
	if err := h.Notifications.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	if err := h.Suggestions.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	return h.Users.Delete(ctx, userID)
}
