package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/checkout"
	"github.com/BrightCodeshub/BakeryShop/internal/config"
	"github.com/BrightCodeshub/BakeryShop/internal/db"
	bakeryHttp "github.com/BrightCodeshub/BakeryShop/internal/handler/http"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()

	log.Info().Msg("Bakery service starting...")

	ctx := context.Background()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	cartStorage, closeStorage := newCartStorage(ctx, cfg.Redis)
	defer closeStorage()
	carts := cart.NewStore(cartStorage)
	carts.Subscribe(func(cartID string, items []cart.Item) {
		log.Debug().Str("cart_id", cartID).Int("item_count", cart.CountOf(items)).Msg("cart updated")
	})

	profileSvc := profile.NewService(profile.NewRepository(pg.Pool))
	menuSvc := menu.NewService(menu.NewRepository(pg.Pool))
	orderRepo := order.NewRepository(pg.Pool)
	orderSvc := order.NewService(orderRepo)
	projector := order.NewProjector(orderRepo, profileSvc)
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency)
	paymentSvc := payment.NewService(payment.NewRepository(pg.Pool), orderSvc)
	checkoutSvc := checkout.NewService(orderSvc, menuSvc, gateway, carts, cfg.App.SiteURL)

	router := bakeryHttp.NewRouter(bakeryHttp.Dependencies{
		Auth:      auth.NewAuthenticator(cfg.Auth.JWTSecret, profileSvc),
		Carts:     carts,
		Menu:      menuSvc,
		Orders:    orderSvc,
		Projector: projector,
		Checkout:  checkoutSvc,
		Payments:  paymentSvc,
		Verifier:  payment.NewStripeVerifier(cfg.Stripe.WebhookSecret),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      otelhttp.NewHandler(router, cfg.App.Name),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// newCartStorage keeps carts in Redis when an address is configured and in
// process memory otherwise.
func newCartStorage(ctx context.Context, cfg config.RedisConfig) (cart.Storage, func()) {
	if cfg.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, carts are kept in memory")
		return cart.NewMemoryStorage(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("Failed to connect to redis")
	}
	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.CartTTL).Msg("Cart storage: redis")

	return cart.NewRedisStorage(client, cfg.CartTTL), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}
