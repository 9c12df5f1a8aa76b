// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	chatstore "github.com/dalemusser/clubhub/internal/app/store/chats"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	friendstore "github.com/dalemusser/clubhub/internal/app/store/friends"
	groupstore "github.com/dalemusser/clubhub/internal/app/store/groups"
	notificationstore "github.com/dalemusser/clubhub/internal/app/store/notifications"
	suggestionstore "github.com/dalemusser/clubhub/internal/app/store/suggestions"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/indexes"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and builds the stores
// and the notification pipeline on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}
	logger.Info("mongo connected",
		zap.String("database", appCfg.MongoDatabase))

	db := client.Database(appCfg.MongoDatabase)

	notifications := notificationstore.New(db)

	// The writer-backed publisher is the fallback transport; with a
	// broker configured the same writer sits behind the consumer.
	fallback := notify.WriterPublisher{W: notifications}
	publisher := notify.NewPublisher(appCfg.AMQPURL, appCfg.AMQPExchange, fallback, logger)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,

		Users:         userstore.New(db),
		Friends:       friendstore.New(db),
		Groups:        groupstore.New(db),
		Chats:         chatstore.New(db),
		Events:        eventstore.New(db),
		Notifications: notifications,
		Suggestions:   suggestionstore.New(db),

		Publisher:  publisher,
		Dispatcher: notify.NewDispatcher(publisher, logger),
	}, nil
}

// EnsureSchema reconciles collections, JSON-Schema validators, and
// indexes at startup. Both passes are idempotent; any problem fails
// startup fast.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("validator setup failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
