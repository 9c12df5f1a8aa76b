// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Get("/{groupID}", h.ServeGroup)
	r.Patch("/{groupID}", h.HandleUpdateInfo)
	r.Delete("/{groupID}", h.HandleDelete)

	r.Post("/{groupID}/join-requests", h.HandleSendJoinRequest)
	r.Delete("/{groupID}/join-requests", h.HandleWithdrawJoinRequest)
	r.Post("/{groupID}/join-requests/{userID}/accept", h.HandleAcceptJoinRequest)
	r.Post("/{groupID}/join-requests/{userID}/reject", h.HandleRejectJoinRequest)

	r.Post("/{groupID}/leave", h.HandleLeave)

	r.Post("/{groupID}/admins", h.HandleAddAdmin)
	r.Delete("/{groupID}/admins/{userID}", h.HandleRemoveAdmin)

	return r
}
