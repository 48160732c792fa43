// Package paywall собирает основной сервис контроля доступа: хранилище,
// кеш, очередь сообщений и HTTP-сервер с маршрутами.
package paywall

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/paywall-access/internal/cache"
	"github.com/magabrotheeeer/paywall-access/internal/config"
	"github.com/magabrotheeeer/paywall-access/internal/gateway/stripe"
	"github.com/magabrotheeeer/paywall-access/internal/lib/jwt"
	"github.com/magabrotheeeer/paywall-access/internal/migrations"
	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/rabbitmq"
	entitlementservice "github.com/magabrotheeeer/paywall-access/internal/services/entitlement"
	paymenteventservice "github.com/magabrotheeeer/paywall-access/internal/services/paymentevent"
	sessionservice "github.com/magabrotheeeer/paywall-access/internal/services/session"
	subscriberservice "github.com/magabrotheeeer/paywall-access/internal/services/subscriber"
	"github.com/magabrotheeeer/paywall-access/internal/storage/repository"
	"github.com/magabrotheeeer/paywall-access/internal/tokenvault"
)

// App — основной сервис контроля доступа.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает все зависимости сервиса и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	vault := tokenvault.New(cacheRedis, cfg.Salt, cfg.LoginTokenTTL, logger)
	stripeClient := stripe.NewClient(cfg.StripeSecretKey(), cfg.FetchTimeout)
	evaluator := entitlementservice.New(stripeClient, logger)

	subscriberService := subscriberservice.New(db, cfg, cfg.Salt, logger)
	subscriberService.Subscribe(subscriberservice.ObserverFunc(
		func(email string, sub *models.Subscriber, _ models.UpsertArgs) {
			err := publisher.PublishSubscriberChanged(models.SubscriberChangedEvent{
				Email:          email,
				Hash:           sub.Hash,
				Mode:           sub.Mode,
				PaymentGateway: sub.PaymentGateway,
				PaymentStatus:  sub.PaymentStatus,
				Expires:        sub.Expires,
			})
			if err != nil {
				logger.Error("failed to publish subscriber change", slog.Any("err", err))
			}
		}))

	sessionService := sessionservice.New(vault, subscriberService, evaluator,
		cacheRedis, cfg.RecognitionTTL, logger)
	paymentService := paymenteventservice.New(subscriberService, logger)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.AdminTokenTTL)
	linkLimiter := rate.NewLimiter(1, 3)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, vault, publisher, sessionService,
		paymentService, subscriberService, jwtMaker, linkLimiter)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		a.db.DB.Close()
		return err
	}
}
