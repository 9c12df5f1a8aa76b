// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// consumerRetryDelay is the pause before redialing a dropped AMQP
// connection.
const consumerRetryDelay = 5 * time.Second

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// ClubHub applies any TIMEOUT_* overrides and, when a broker is
// configured, launches the notification consumer that drains envelopes
// into the notifications collection.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}

	if appCfg.AMQPURL != "" {
		consumer := notify.NewConsumer(appCfg.AMQPURL, appCfg.AMQPExchange, appCfg.AMQPQueue, deps.Notifications, logger)
		go runConsumer(ctx, consumer, logger)
	}

	return nil
}

// runConsumer keeps the notification consumer alive, redialing after
// connection drops until the context is canceled.
func runConsumer(ctx context.Context, consumer *notify.Consumer, logger *zap.Logger) {
	for {
		err := consumer.Run(ctx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		logger.Warn("notification consumer stopped, retrying",
			zap.Duration("retry_in", consumerRetryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRetryDelay):
		}
	}
}
