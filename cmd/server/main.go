// Command server runs the DM bridge: it authenticates against the upstream
// messaging provider on the terminal client's behalf and serves the inbox
// over HTTP/JSON.
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
	"go.uber.org/zap"

	"igdm/internal/config"
	"igdm/internal/crypto"
	"igdm/internal/handler"
	dmservice "igdm/internal/service/dm"
	"igdm/internal/session"
	"igdm/internal/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	keys := crypto.NewKeyPairStore(cfg.Paths.KeysDir)
	if err := keys.Ensure(); err != nil {
		// Without the key pair no login can be authenticated.
		logger.Fatal("credential-transport key pair unavailable", zap.Error(err))
	}

	gateway := upstream.NewGateway(upstream.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		MinSpacing:     cfg.Upstream.MinSpacing,
		RequestTimeout: cfg.Upstream.RequestTimeout,
		MaxRetries:     cfg.Upstream.MaxRetries,
	}, logger)

	sessions := session.NewManager(session.NewStore(cfg.Paths.SessionFile), gateway, logger)
	if !sessions.Restore() {
		autoLogin(ctx, cfg, sessions, logger)
	}

	engine := dmservice.NewService(gateway, logger)
	router := handler.NewRouter(keys, sessions, engine, cfg.Auth.AllowPlaintextLogin, logger)

	startServer(ctx, cfg.Server, router, logger)
}

// autoLogin signs in with environment credentials when provided, so a
// restarted server is usable without a client round trip.
func autoLogin(ctx context.Context, cfg *config.Config, sessions *session.Manager, logger *zap.Logger) {
	if cfg.Auth.AutoLoginUsername == "" || cfg.Auth.AutoLoginPassword == "" {
		logger.Info("no credentials in environment; use POST /auth/login")
		return
	}
	if _, err := sessions.Login(ctx, cfg.Auth.AutoLoginUsername, cfg.Auth.AutoLoginPassword); err != nil {
		logger.Error("auto-login failed", zap.Error(err))
		return
	}
	logger.Info("auto-login successful", zap.String("username", cfg.Auth.AutoLoginUsername))
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("server listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
