// Command authd serves the authcore login API over HTTP.
//
// Configuration comes from the environment (a local .env file is loaded
// when present):
//
//	REDIS_ADDR          redis host:port (default localhost:6379)
//	REDIS_PREFIX        key prefix (default authcore:)
//	HTTP_ADDR           listen address (default :8080)
//	NOTIFY_LINK_BASE    confirmation link base URL
//	NOTIFY_LINK_SECRET  HS256 secret for link tokens
//	MAILER_ENDPOINT     HTTP mail API endpoint (empty disables notifications)
//	MAILER_API_KEY      bearer token for the mail API
//	MAILER_FROM         sender address
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avirel-labs/authcore"
	"github.com/avirel-labs/authcore/accounts"
	"github.com/avirel-labs/authcore/httpapi"
	"github.com/avirel-labs/authcore/notify"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Fatal("redis is unreachable")
	}

	cfg := authcore.DefaultConfig()
	cfg.RedisPrefix = envOr("REDIS_PREFIX", cfg.RedisPrefix)
	cfg.Notify.LinkBaseURL = os.Getenv("NOTIFY_LINK_BASE")
	cfg.Notify.LinkSecret = []byte(os.Getenv("NOTIFY_LINK_SECRET"))
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	builder := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(accounts.NewRedisDirectory(rdb, cfg.RedisPrefix)).
		WithAuditSink(authcore.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger)

	if endpoint := os.Getenv("MAILER_ENDPOINT"); endpoint != "" {
		builder.WithMailer(notify.NewHTTPMailer(
			endpoint,
			os.Getenv("MAILER_API_KEY"),
			envOr("MAILER_FROM", "accounts@localhost"),
			logger,
		))
	}

	engine, err := builder.Build()
	if err != nil {
		logger.WithError(err).Fatal("engine construction failed")
	}
	defer engine.Close()

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	httpapi.NewHandler(engine, logger).RegisterRoutes(app)

	addr := envOr("HTTP_ADDR", ":8080")
	go func() {
		logger.WithField("addr", addr).Info("authd listening")
		if err := app.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
