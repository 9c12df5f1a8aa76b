package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AsUser attaches a member identity for the given user ID to the request.
func AsUser(r *http.Request, userID primitive.ObjectID) *http.Request {
	return auth.WithIdentity(r, auth.Identity{UserID: userID, Name: "Test Member", Role: "member"})
}

// AsAdmin attaches a site-admin identity for the given user ID to the request.
func AsAdmin(r *http.Request, userID primitive.ObjectID) *http.Request {
	return auth.WithIdentity(r, auth.Identity{UserID: userID, Name: "Test Admin", Role: "admin"})
}
