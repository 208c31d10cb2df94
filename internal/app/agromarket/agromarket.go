// Package agromarket собирает приложение маркетплейса: хранилище,
// миграции, кеш, брокер, платёжный шлюз, сервисы и HTTP-сервер.
package agromarket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/agroculture/marketplace/internal/cache"
	"github.com/agroculture/marketplace/internal/config"
	"github.com/agroculture/marketplace/internal/gateway/razorpay"
	"github.com/agroculture/marketplace/internal/lib/jwt"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/migrations"
	"github.com/agroculture/marketplace/internal/rabbitmq"
	authservice "github.com/agroculture/marketplace/internal/services/auth"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
	subscriptionservice "github.com/agroculture/marketplace/internal/services/subscription"
	"github.com/agroculture/marketplace/internal/storage"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
}

// New инициализирует зависимости и собирает приложение.
// Брокер событий опционален: без него сервис работает, события
// жизненного цикла подписки просто не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQConnection.AddressRabbit != "" {
		conn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetSubscriptionQueues())
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("rabbitmq address is empty, lifecycle events disabled")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := razorpay.NewClient(cfg.Payments.KeyID, cfg.Payments.KeySecret, cfg.Payments.APIURL)

	// Типизированный nil в интерфейсе сломал бы проверки publisher != nil
	// внутри сервисов, поэтому интерфейсы заполняются только при живом канале.
	var subPub subscriptionservice.Publisher
	var payPub paymentservice.Publisher
	if publisher != nil {
		subPub = publisher
		payPub = publisher
	}

	authService := authservice.NewAuthService(db, jwtMaker, logger)
	subscriptionService := subscriptionservice.New(db, subPub, logger)
	paymentService := paymentservice.New(
		gateway,
		subscriptionService,
		db,
		cacheRedis,
		payPub,
		paymentservice.Config{
			KeyID:           cfg.Payments.KeyID,
			KeySecret:       cfg.Payments.KeySecret,
			Amount:          cfg.Payments.SubscriptionAmount,
			Currency:        cfg.Payments.SubscriptionCurrency,
			PendingOrderTTL: cfg.Payments.PendingOrderTTL,
		},
		logger,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, subscriptionService, paymentService)

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
		if dbErr := a.db.Close(); dbErr != nil {
			a.logger.Warn("failed to close storage", sl.Err(dbErr))
		}
		return err
	}
}
