package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/api"
	"github.com/bcnelson/app-catalog/internal/api/middleware"
	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/bootstrap"
	"github.com/bcnelson/app-catalog/internal/config"
	"github.com/bcnelson/app-catalog/internal/logging"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log := bootLogger()
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "app-catalog"})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func bootLogger() zerolog.Logger {
	return logging.New(logging.Config{Service: "app-catalog"})
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStorage(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	authService, err := bootstrap.AuthService(cfg, store, log)
	if err != nil {
		return err
	}

	key, err := bootstrap.SessionKey(&cfg.Auth, log)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionManager(key, cfg.Auth.SessionDuration, cfg.Auth.SecureCookies)
	if err != nil {
		return err
	}
	states, err := auth.NewStateStore(key, cfg.Auth.SecureCookies)
	if err != nil {
		return err
	}
	oidcProvider, err := bootstrap.OIDC(ctx, &cfg.OIDC, log)
	if err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(10*time.Minute, ctx.Done())
	}

	if cfg.Auth.BootstrapAPIKey != "" {
		log.Warn().Msg("bootstrap API key is active until the first API key is created")
	}

	router := api.NewRouter(api.Options{
		Store:        store,
		Auth:         authService,
		Sessions:     sessions,
		OIDC:         oidcProvider,
		States:       states,
		BootstrapKey: cfg.Auth.BootstrapAPIKey,
		PageSize:     cfg.Search.PageSize,
		ImportLimit:  cfg.Server.MaxImportBytes,
		RateLimiter:  limiter,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Str("backend", cfg.Database.Backend).Msg("starting application catalog")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
