// Package notifications exposes the per-user notification inbox over
// HTTP. Notifications are created by the notify consumer, never here.
package notifications

import (
	"net/http"

	notificationstore "github.com/dalemusser/clubhub/internal/app/store/notifications"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/webutil"
	"go.uber.org/zap"
)

// Handler holds the notification feature's dependencies.
type Handler struct {
	Notifications *notificationstore.Store
	Log           *zap.Logger
}

// NewHandler constructs a notifications Handler.
func NewHandler(notifications *notificationstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Notifications: notifications, Log: logger}
}

// ServeList handles GET /notifications. Query parameters: unread
// (bool) and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	onlyUnread := webutil.QueryBool(r, "unread")
	limit := webutil.QueryInt64(r, "limit", 0)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "notification list")
	defer cancel()

	ns, err := h.Notifications.ListForRecipient(ctx, id.UserID, onlyUnread, limit)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, ns)
}

// HandleMarkRead handles POST /notifications/{notificationID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	notifID, err := webutil.PathID(r, "notificationID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "notification mark read")
	defer cancel()

	err = h.Notifications.MarkRead(ctx, notifID, id.UserID)
	observe.Mutation("notification.mark_read", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleMarkAllRead handles POST /notifications/read-all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "notification mark all read")
	defer cancel()

	err := h.Notifications.MarkAllRead(ctx, id.UserID)
	observe.Mutation("notification.mark_all_read", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleDelete handles DELETE /notifications/{notificationID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	notifID, err := webutil.PathID(r, "notificationID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "notification delete")
	defer cancel()

	err = h.Notifications.Delete(ctx, notifID, id.UserID)
	observe.Mutation("notification.delete", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}
