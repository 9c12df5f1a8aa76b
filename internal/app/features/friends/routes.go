// internal/app/features/friends/routes.go
package friends

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeLists)

	r.Post("/requests", h.HandleSendRequest)
	r.Post("/requests/{userID}/accept", h.HandleAcceptRequest)
	r.Post("/requests/{userID}/reject", h.HandleRejectRequest)
	r.Delete("/requests/{userID}", h.HandleCancelRequest)

	r.Delete("/{userID}", h.HandleRemoveFriend)

	r.Post("/blocks", h.HandleBlock)
	r.Delete("/blocks/{userID}", h.HandleUnblock)

	return r
}
