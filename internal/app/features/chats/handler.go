// Package chats exposes private chats, message history, and read
// markers over HTTP. Group chat membership is managed by the group
// lifecycle, not here.
package chats

import (
	"net/http"

	chatstore "github.com/dalemusser/clubhub/internal/app/store/chats"
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

// Handler holds the chat feature's dependencies.
type Handler struct {
	Chats  *chatstore.Store
	Notify *notify.Dispatcher
	Log    *zap.Logger
}

// NewHandler constructs a chats Handler.
func NewHandler(chats *chatstore.Store, dispatcher *notify.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Chats: chats, Notify: dispatcher, Log: logger}
}

// HandleCreatePrivate handles POST /chats. Creating a chat with the
// same counterpart twice returns the existing chat.
func (h *Handler) HandleCreatePrivate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}
	otherID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		apperr.WriteError(w, apperr.Validation("invalid user_id %q", req.UserID))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "private chat create")
	defer cancel()

	c, err := h.Chats.CreatePrivate(ctx, id.UserID, otherID)
	observe.Mutation("chat.create_private", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, c)
}

// ServeList handles GET /chats. Most recently active first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "chat list")
	defer cancel()

	cs, err := h.Chats.ListForUser(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, cs)
}

// ServeMessages handles GET /chats/{chatID}/messages. Query parameters:
// before (RFC 3339, optional) and limit.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	chatID, err := webutil.PathID(r, "chatID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	before, err := webutil.QueryTime(r, "before")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	limit := webutil.QueryInt64(r, "limit", 0)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "message history")
	defer cancel()

	msgs, err := h.Chats.ListMessages(ctx, chatID, id.UserID, before, limit)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, msgs)
}

// HandleSendMessage handles POST /chats/{chatID}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	chatID, err := webutil.PathID(r, "chatID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "message send")
	defer cancel()

	msg, err := h.Chats.SendMessage(ctx, chatID, id.UserID, req.Body)
	observe.Mutation("chat.send_message", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	if c, cerr := h.Chats.GetByID(ctx, chatID); cerr == nil {
		h.Notify.Dispatch(ctx, c.Members,
			models.NotifChatMessage, id.Name+" sent a message",
			&id.UserID, &models.RelatedEntity{Type: "chat", ID: chatID})
	}

	apperr.WriteJSON(w, http.StatusCreated, msg)
}

// HandleDelete handles DELETE /chats/{chatID}. Only private chats can
// be deleted here; a group chat is deleted with its group.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	chatID, err := webutil.PathID(r, "chatID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "private chat delete")
	defer cancel()

	err = h.Chats.DeletePrivate(ctx, chatID, id.UserID)
	observe.Mutation("chat.delete_private", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleMarkRead handles POST /chats/{chatID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	chatID, err := webutil.PathID(r, "chatID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "chat mark read")
	defer cancel()

	err = h.Chats.MarkRead(ctx, chatID, id.UserID)
	observe.Mutation("chat.mark_read", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}
