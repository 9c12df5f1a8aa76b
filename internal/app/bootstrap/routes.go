// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	chatsfeature "github.com/dalemusser/clubhub/internal/app/features/chats"
	eventsfeature "github.com/dalemusser/clubhub/internal/app/features/events"
	friendsfeature "github.com/dalemusser/clubhub/internal/app/features/friends"
	groupsfeature "github.com/dalemusser/clubhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/clubhub/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/clubhub/internal/app/features/notifications"
	suggestionsfeature "github.com/dalemusser/clubhub/internal/app/features/suggestions"
	usersfeature "github.com/dalemusser/clubhub/internal/app/features/users"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. ClubHub decodes the caller
// identity once per request, records request metrics, and mounts one
// JSON feature router per application area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier, err := auth.NewVerifier(appCfg.IdentityKey, logger)
	if err != nil {
		logger.Error("identity verifier init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Global middleware: request metrics and caller identity. Invalid
	// or absent cookies leave the request anonymous; each feature's
	// RequireSignedIn decides whether that matters.
	r.Use(observe.HTTPMetrics)
	r.Use(verifier.LoadIdentity)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus metrics
	r.Handle("/metrics", observe.Handler())

	// Accounts and profiles
	usersHandler := usersfeature.NewHandler(deps.Users, deps.Groups, deps.Chats, deps.Events, deps.Notifications, deps.Suggestions, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler))

	// Friend lifecycle and block lists
	friendsHandler := friendsfeature.NewHandler(deps.Friends, deps.Users, deps.Dispatcher, logger)
	r.Mount("/friends", friendsfeature.Routes(friendsHandler))

	// Group lifecycle
	groupsHandler := groupsfeature.NewHandler(deps.Groups, deps.MongoDatabase, deps.Dispatcher, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	// Chats and messages
	chatsHandler := chatsfeature.NewHandler(deps.Chats, deps.Dispatcher, logger)
	r.Mount("/chats", chatsfeature.Routes(chatsHandler))

	// Event lifecycle and RSVPs
	eventsHandler := eventsfeature.NewHandler(deps.Events, deps.Groups, deps.MongoDatabase, deps.Dispatcher, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler))

	// Notification inbox
	notificationsHandler := notificationsfeature.NewHandler(deps.Notifications, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))

	// Friend suggestions
	suggestionsHandler := suggestionsfeature.NewHandler(deps.Suggestions, logger)
	r.Mount("/suggestions", suggestionsfeature.Routes(suggestionsHandler))

	return r, nil
}
