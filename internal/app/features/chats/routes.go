// internal/app/features/chats/routes.go
package chats

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreatePrivate)

	r.Delete("/{chatID}", h.HandleDelete)

	r.Get("/{chatID}/messages", h.ServeMessages)
	r.Post("/{chatID}/messages", h.HandleSendMessage)
	r.Post("/{chatID}/read", h.HandleMarkRead)

	return r
}
