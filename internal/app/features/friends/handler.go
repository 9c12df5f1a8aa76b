// Package friends exposes the friend lifecycle over HTTP: requests,
// acceptance, removal, and the block list.
package friends

import (
	"net/http"

	friendstore "github.com/dalemusser/clubhub/internal/app/store/friends"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/webutil"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler holds the friend feature's dependencies.
type Handler struct {
	Friends *friendstore.Store
	Users   *userstore.Store
	Notify  *notify.Dispatcher
	Log     *zap.Logger
}

// NewHandler constructs a friends Handler.
func NewHandler(friends *friendstore.Store, users *userstore.Store, dispatcher *notify.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Friends: friends, Users: users, Notify: dispatcher, Log: logger}
}

type userIDRequest struct {
	UserID string `json:"user_id"`
}

func (req userIDRequest) objectID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid user_id %q", req.UserID)
	}
	return id, nil
}

// HandleSendRequest handles POST /friends/requests.
func (h *Handler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req userIDRequest
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}
	receiverID, err := req.objectID()
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friend request send")
	defer cancel()

	err = h.Friends.SendRequest(ctx, id.UserID, receiverID)
	observe.Mutation("friend.send_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	h.Notify.Dispatch(ctx, []primitive.ObjectID{receiverID},
		models.NotifFriendRequest, id.Name+" sent you a friend request",
		&id.UserID, &models.RelatedEntity{Type: "user", ID: id.UserID})

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleAcceptRequest handles POST /friends/requests/{userID}/accept.
// {userID} is the original sender of the pending request.
func (h *Handler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	senderID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "friend request accept")
	defer cancel()

	err = h.Friends.AcceptRequest(ctx, id.UserID, senderID)
	observe.Mutation("friend.accept_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	h.Notify.Dispatch(ctx, []primitive.ObjectID{senderID},
		models.NotifFriendRequestAccepted, id.Name+" accepted your friend request",
		&id.UserID, &models.RelatedEntity{Type: "user", ID: id.UserID})

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleRejectRequest handles POST /friends/requests/{userID}/reject.
func (h *Handler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	senderID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friend request reject")
	defer cancel()

	err = h.Friends.RejectRequest(ctx, id.UserID, senderID)
	observe.Mutation("friend.reject_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleCancelRequest handles DELETE /friends/requests/{userID}.
// {userID} is the receiver of the caller's pending outgoing request.
func (h *Handler) HandleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	receiverID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friend request cancel")
	defer cancel()

	err = h.Friends.CancelRequest(ctx, id.UserID, receiverID)
	observe.Mutation("friend.cancel_request", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleRemoveFriend handles DELETE /friends/{userID}.
func (h *Handler) HandleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	otherID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friend remove")
	defer cancel()

	err = h.Friends.RemoveFriend(ctx, id.UserID, otherID)
	observe.Mutation("friend.remove", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleBlock handles POST /friends/blocks.
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req userIDRequest
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}
	targetID, err := req.objectID()
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "user block")
	defer cancel()

	err = h.Friends.Block(ctx, id.UserID, targetID)
	observe.Mutation("friend.block", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleUnblock handles DELETE /friends/blocks/{userID}.
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	targetID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "user unblock")
	defer cancel()

	err = h.Friends.Unblock(ctx, id.UserID, targetID)
	observe.Mutation("friend.unblock", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// relationshipLists is the response body for GET /friends.
type relationshipLists struct {
	Friends     []primitive.ObjectID `json:"friends"`
	RequestsIn  []primitive.ObjectID `json:"requests_in"`
	RequestsOut []primitive.ObjectID `json:"requests_out"`
	Blocked     []primitive.ObjectID `json:"blocked"`
}

// ServeLists handles GET /friends. It returns the caller's friend,
// pending-request, and block sets.
func (h *Handler) ServeLists(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "friend lists")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, relationshipLists{
		Friends:     u.Friends,
		RequestsIn:  u.FriendRequestsIn,
		RequestsOut: u.FriendRequestsOut,
		Blocked:     u.BlockedUsers,
	})
}
