// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	chatstore "github.com/dalemusser/clubhub/internal/app/store/chats"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	friendstore "github.com/dalemusser/clubhub/internal/app/store/friends"
	groupstore "github.com/dalemusser/clubhub/internal/app/store/groups"
	notificationstore "github.com/dalemusser/clubhub/internal/app/store/notifications"
	suggestionstore "github.com/dalemusser/clubhub/internal/app/store/suggestions"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app: the
// Mongo handles, one store per collection, and the notification
// pipeline built on top of them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Users         *userstore.Store
	Friends       *friendstore.Store
	Groups        *groupstore.Store
	Chats         *chatstore.Store
	Events        *eventstore.Store
	Notifications *notificationstore.Store
	Suggestions   *suggestionstore.Store

	Publisher  notify.Publisher
	Dispatcher *notify.Dispatcher
}
