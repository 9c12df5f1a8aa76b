// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleCreate)
	r.Get("/group/{groupID}", h.ServeListForGroup)

	r.Post("/{eventID}/approve", h.HandleApprove)
	r.Patch("/{eventID}", h.HandleUpdateDetails)
	r.Delete("/{eventID}", h.HandleDelete)

	r.Post("/{eventID}/rsvp", h.HandleRSVP)
	r.Delete("/{eventID}/rsvp", h.HandleCancelRSVP)

	return r
}
