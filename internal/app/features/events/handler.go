// Package events exposes the event lifecycle over HTTP: creation,
// approval, edits, the RSVP flow, and deletion.
package events

import (
	"net/http"
	"time"

	"github.com/dalemusser/clubhub/internal/app/policy/eventpolicy"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
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

// Handler holds the event feature's dependencies.
type Handler struct {
	Events *eventstore.Store
	Groups *groupstore.Store
	DB     *mongo.Database
	Notify *notify.Dispatcher
	Log    *zap.Logger
}

// NewHandler constructs an events Handler.
func NewHandler(events *eventstore.Store, groups *groupstore.Store, db *mongo.Database, dispatcher *notify.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Groups: groups, DB: db, Notify: dispatcher, Log: logger}
}

// HandleCreate handles POST /events. New events await site-admin
// approval before anyone can RSVP.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req struct {
		GroupID     string    `json:"group_id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		StartsAt    time.Time `json:"starts_at"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		apperr.WriteError(w, apperr.Validation("invalid group_id %q", req.GroupID))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "event create")
	defer cancel()

	ev, err := h.Events.Create(ctx, groupID, id.UserID, req.Title, req.Description, req.Location, req.StartsAt)
	observe.Mutation("event.create", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	// Group admins see proposals awaiting approval.
	if g, gerr := h.Groups.GetByID(ctx, groupID); gerr == nil {
		h.Notify.Dispatch(ctx, g.Admins,
			models.NotifEventCreated, id.Name+" proposed "+ev.Title,
			&id.UserID, &models.RelatedEntity{Type: "event", ID: ev.ID})
	}

	apperr.WriteJSON(w, http.StatusCreated, ev)
}

// ServeListForGroup handles GET /events/group/{groupID}.
func (h *Handler) ServeListForGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := webutil.PathID(r, "groupID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "event list")
	defer cancel()

	evs, err := h.Events.ListForGroup(ctx, groupID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, evs)
}

// HandleApprove handles POST /events/{eventID}/approve. Site admins
// only; group admins do not approve their own events.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	if !id.IsSiteAdmin() {
		apperr.WriteError(w, apperr.Forbidden("site admin role required"))
		return
	}
	eventID, err := webutil.PathID(r, "eventID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "event approve")
	defer cancel()

	err = h.Events.Approve(ctx, eventID)
	observe.Mutation("event.approve", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	if ev, everr := h.Events.GetByID(ctx, eventID); everr == nil {
		if g, gerr := h.Groups.GetByID(ctx, ev.GroupID); gerr == nil {
			h.Notify.Dispatch(ctx, g.Members,
				models.NotifEventApproved, ev.Title+" is confirmed",
				&id.UserID, &models.RelatedEntity{Type: "event", ID: eventID})
		}
	}

	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleUpdateDetails handles PATCH /events/{eventID}. Group admins only.
func (h *Handler) HandleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	eventID, err := webutil.PathID(r, "eventID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Location    *string    `json:"location"`
		StartsAt    *time.Time `json:"starts_at"`
	}
	if err := webutil.DecodeJSON(r, &req); err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "event update")
	defer cancel()

	ok, err := eventpolicy.CanEditEvent(ctx, h.DB, eventID, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if !ok {
		apperr.WriteError(w, apperr.Forbidden("group admin role required"))
		return
	}

	err = h.Events.UpdateDetails(ctx, eventID, req.Title, req.Description, req.Location, req.StartsAt)
	observe.Mutation("event.update_details", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleRSVP handles POST /events/{eventID}/rsvp.
func (h *Handler) HandleRSVP(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	eventID, err := webutil.PathID(r, "eventID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "event rsvp")
	defer cancel()

	err = h.Events.RSVP(ctx, eventID, id.UserID)
	observe.Mutation("event.rsvp", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleCancelRSVP handles DELETE /events/{eventID}/rsvp.
func (h *Handler) HandleCancelRSVP(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	eventID, err := webutil.PathID(r, "eventID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "event rsvp cancel")
	defer cancel()

	err = h.Events.CancelRSVP(ctx, eventID, id.UserID)
	observe.Mutation("event.cancel_rsvp", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}

// HandleDelete handles DELETE /events/{eventID}. The creator or a
// group admin may delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	eventID, err := webutil.PathID(r, "eventID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "event delete cascade")
	defer cancel()

	ok, err := eventpolicy.CanDeleteEvent(ctx, h.DB, eventID, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if !ok {
		apperr.WriteError(w, apperr.Forbidden("only the event creator or a group admin may delete the event"))
		return
	}

	// Capture the audience before the cascade clears the attendee set.
	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	err = h.Events.Delete(ctx, eventID)
	observe.Mutation("event.delete", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	h.Notify.Dispatch(ctx, ev.Attendees,
		models.NotifEventDeleted, ev.Title+" has been cancelled",
		&id.UserID, &models.RelatedEntity{Type: "event", ID: eventID})

	apperr.WriteJSON(w, http.StatusOK, nil)
}
