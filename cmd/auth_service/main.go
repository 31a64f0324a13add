package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"auth_backend/internal/auth"
	"auth_backend/internal/config"
	"auth_backend/internal/handler"
	"auth_backend/internal/otp"
	"auth_backend/internal/service"
	"auth_backend/internal/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	//PARSE ARGS
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to yaml config, env only when empty")

	flag.Parse()

	cfg := config.MustLoadConfig(configPath)

	//INIT LOGGER
	lgr := setupLogger(cfg.Env)
	lgr.Info("starting auth service", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//INIT DB
	st, err := newStorage(ctx, cfg)
	if err != nil {
		lgr.Error("failed to init storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	if !cfg.Twilio.Complete() {
		lgr.Warn("verification provider credentials are not set, OTP endpoints will fail")
	}

	tokens := auth.NewTokenManager(cfg.JWT)
	authService := service.NewService(st, tokens, lgr)
	otpService := otp.NewService(cfg.Twilio, otp.NewTwilioProvider(cfg.Twilio), lgr)

	//INIT SERVER
	h := handler.NewHandler(authService, otpService, lgr)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      h.InitRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		lgr.Info("http server listening", slog.String("address", cfg.Address))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("http server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("failed to shutdown http server", slog.Any("error", err))
	}

	lgr.Info("auth service stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == config.StorageMemory {
		return storage.NewMemoryStorage(), nil
	}

	pg, err := storage.NewPostgresStorage(ctx, cfg.DbURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
