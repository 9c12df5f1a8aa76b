// internal/app/features/suggestions/routes.go
package suggestions

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/generate", h.HandleGenerate)
	r.Delete("/{userID}", h.HandleDismiss)

	return r
}
