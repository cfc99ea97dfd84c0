package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/account"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
	storeHttp "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/logger"
	"github.com/vasiliy-maslov/storefront/internal/mail"
	"github.com/vasiliy-maslov/storefront/internal/render"
	"github.com/vasiliy-maslov/storefront/internal/report"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logCloser, err := logger.Init(cfg.Log, cfg.App.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init logger")
	}
	defer logCloser.Close()

	log.Info().Str("env", cfg.App.Env).Msg("Starting storefront...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if cfg.Postgres.AutoMigrate {
		if err := db.ApplyMigrations(dbPool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	ledger, closeLedger := newTokenLedger(ctx, cfg.Redis)
	defer closeLedger()

	resetTokens := account.NewResetTokens(cfg.Session.ResetSecret, cfg.Session.ResetTokenTTL, ledger)
	mailer, err := mail.NewSender(cfg.Mail)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure mail sender")
	}

	accountSvc := account.NewService(account.NewRepository(dbPool.Pool), resetTokens, mailer, cfg.App.BaseURL)
	catalogSvc := catalog.NewService(catalog.NewRepository(dbPool.Pool))
	cartSvc := cart.NewService(cart.NewRepository(dbPool.Pool))
	checkoutSvc := checkout.NewService(checkout.NewRepository(dbPool.Pool))
	reportSvc := report.NewService(report.NewRepository(dbPool.Pool))

	views := render.NewTemplateCache()
	if err := views.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	sessions := auth.NewSessionManager(auth.NewCookieStore([]byte(cfg.Session.Key), cfg.Session.CookieSecure))

	handler := storeHttp.NewHandler(storeHttp.Services{
		Accounts: accountSvc,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Reports:  reportSvc,
	}, sessions, views, storeHttp.WithHealthCheck(dbPool.Pool.Ping))

	limiter := storeHttp.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	router := handler.Routes(storeHttp.RouterConfig{
		CSRFKey:        []byte(cfg.Session.CSRFKey),
		SecureCookies:  cfg.Session.CookieSecure,
		TrustedOrigins: trustedOrigins(cfg.App.BaseURL),
		Limiter:        limiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Str("port", cfg.App.Port).Msg("Could not listen")
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		os.Exit(1)
	}

	log.Info().Msg("Storefront stopped gracefully.")
}

// newTokenLedger returns a Redis-backed ledger when Redis answers and an
// in-memory one otherwise.
func newTokenLedger(ctx context.Context, cfg config.RedisConfig) (account.TokenLedger, func()) {
	if cfg.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, reset tokens are tracked in memory")
		return account.NewMemoryLedger(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, reset tokens are tracked in memory")
		_ = client.Close()
		return account.NewMemoryLedger(), func() {}
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return account.NewRedisLedger(client), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
}

func trustedOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
