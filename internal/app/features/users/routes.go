// internal/app/features/users/routes.go
package users

import (
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Registration is the only route open to anonymous callers, so it
	// carries a per-IP rate limit.
	r.Group(func(ar chi.Router) {
		ar.Use(ratelimit.Middleware(ratelimit.New(10, time.Minute)))
		ar.Post("/", h.HandleRegister)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/me", h.ServeMe)
		pr.Patch("/me/profile", h.HandleUpdateProfile)
		pr.Patch("/me/settings", h.HandleUpdateSettings)

		pr.Get("/{userID}", h.ServeUser)
		pr.Delete("/{userID}", h.HandleDelete)
	})

	return r
}
