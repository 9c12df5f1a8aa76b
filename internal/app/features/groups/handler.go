// Package groups exposes the group lifecycle over HTTP: creation, info
// edits, the join-request flow, admin management, and deletion with its
// cascade.
package groups

import (
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/clubhub/internal/app/store/groups"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/webutil"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds the group feature's dependencies. DB is needed by the
// policy predicates, which read group documents directly.
type Handler struct {
	Groups *groupstore.Store
	DB     *mongo.Database
	Notify *notify.Dispatcher
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler.
func NewHandler(groups *groupstore.Store, db *mongo.Database, dispatcher *notify.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Groups: groups, DB: db, Notify: dispatcher, Log: logger}
}

// requireAdmin resolves the admin predicate and converts a plain false
// into a Forbidden error.
func (h *Handler) requireAdmin(r *http.Request, groupID, userID primitive.ObjectID) error {
	ok, err := grouppolicy.IsGroupAdmin(r.Context(), h.DB, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("group admin role required")
	}
	return nil
}

// HandleCreate handles POST /groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "group create")
	defer cancel()

	g, err := h.Groups.Create(ctx, id.UserID, req.Name, req.Description)
	observe.Mutation("group.create", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, g)
}

// ServeList handles GET /groups. It returns the caller's groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "group list")
	defer cancel()

	gs, err := h.Groups.ListForMember(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, gs)
}

// ServeGroup handles GET /groups/{groupID}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "group get")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, groupID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, g)
}

// HandleUpdateInfo handles PATCH /groups/{groupID}. Group admins only.
func (h *Handler) HandleUpdateInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "group update")
	defer cancel()

	if err := h.requireAdmin(r, groupID, id.UserID); err != nil {
		apperr.WriteError(w, err)
		return
	}
	err = h.Groups.UpdateInfo(ctx, groupID, req.Name, req.Description)
	observe.Mutation("group.update_info", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleSendJoinRequest handles POST /groups/{groupID}/join-requests.
func (h *Handler) HandleSendJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "join request send")
	defer cancel()

	err = h.Groups.SendJoinRequest(ctx, groupID, id.UserID)
	observe.Mutation("group.send_join_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	// Admins review join requests, so they are the ones told about it.
	if g, gerr := h.Groups.GetByID(ctx, groupID); gerr == nil {
		h.Notify.Dispatch(ctx, g.Admins,
			models.NotifGroupJoinRequest, id.Name+" asked to join "+g.Name,
			&id.UserID, &models.RelatedEntity{Type: "group", ID: groupID})
	}

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleWithdrawJoinRequest handles DELETE /groups/{groupID}/join-requests.
// Callers withdraw their own pending request.
func (h *Handler) HandleWithdrawJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "join request withdraw")
	defer cancel()

	err = h.Groups.RemoveJoinRequest(ctx, groupID, id.UserID)
	observe.Mutation("group.withdraw_join_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleAcceptJoinRequest handles
// POST /groups/{groupID}/join-requests/{userID}/accept. Group admins only.
func (h *Handler) HandleAcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	userID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "join request accept")
	defer cancel()

	if err := h.requireAdmin(r, groupID, id.UserID); err != nil {
		apperr.WriteError(w, err)
		return
	}
	err = h.Groups.AcceptJoinRequest(ctx, groupID, userID)
	observe.Mutation("group.accept_join_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	if g, gerr := h.Groups.GetByID(ctx, groupID); gerr == nil {
		h.Notify.Dispatch(ctx, []primitive.ObjectID{userID},
			models.NotifGroupJoinAccepted, "you are now a member of "+g.Name,
			&id.UserID, &models.RelatedEntity{Type: "group", ID: groupID})
	}

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleRejectJoinRequest handles
// POST /groups/{groupID}/join-requests/{userID}/reject. Group admins only.
func (h *Handler) HandleRejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	userID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "join request reject")
	defer cancel()

	if err := h.requireAdmin(r, groupID, id.UserID); err != nil {
		apperr.WriteError(w, err)
		return
	}
	err = h.Groups.RemoveJoinRequest(ctx, groupID, userID)
	observe.Mutation("group.reject_join_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleLeave handles POST /groups/{groupID}/leave. Owners cannot
// leave; they delete the group or stay.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "group leave")
	defer cancel()

	err = h.Groups.Leave(ctx, groupID, id.UserID)
	observe.Mutation("group.leave", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleAddAdmin handles POST /groups/{groupID}/admins. Group admins only.
func (h *Handler) HandleAddAdmin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		apperr.WriteError(w, apperr.Validation("invalid user_id %q", req.UserID))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "group admin add")
	defer cancel()

	if err := h.requireAdmin(r, groupID, id.UserID); err != nil {
		apperr.WriteError(w, err)
		return
	}
	err = h.Groups.AddAdmin(ctx, groupID, userID)
	observe.Mutation("group.add_admin", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	if g, gerr := h.Groups.GetByID(ctx, groupID); gerr == nil {
		h.Notify.Dispatch(ctx, []primitive.ObjectID{userID},
			models.NotifGroupAdminAdded, "you are now an admin of "+g.Name,
			&id.UserID, &models.RelatedEntity{Type: "group", ID: groupID})
	}

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleRemoveAdmin handles DELETE /groups/{groupID}/admins/{userID}.
// Group admins only; the owner can never be demoted.
func (h *Handler) HandleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	userID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "group admin remove")
	defer cancel()

	if err := h.requireAdmin(r, groupID, id.UserID); err != nil {
		apperr.WriteError(w, err)
		return
	}
	err = h.Groups.RemoveAdmin(ctx, groupID, userID)
	observe.Mutation("group.remove_admin", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleDelete handles DELETE /groups/{groupID}. Only the owner, who
// must also still hold the admin bit, may delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "group delete cascade")
	defer cancel()

	ok, err := grouppolicy.CanDeleteGroup(ctx, h.DB, groupID, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if !ok {
		apperr.WriteError(w, apperr.Forbidden("only the group owner may delete the group"))
		return
	}

	// Capture the audience before the cascade wipes the member set.
	g, err := h.Groups.GetByID(ctx, groupID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	err = h.Groups.Delete(ctx, groupID)
	observe.Mutation("group.delete", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	h.Notify.Dispatch(ctx, g.Members,
		models.NotifGroupDeleted, g.Name+" has been deleted",
		&id.UserID, &models.RelatedEntity{Type: "group", ID: groupID})

	apperr.WriteJSON(w, http.StatusOK, nil)
}
