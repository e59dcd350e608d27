// Package main implements tradernetd, the development auth collaborator the
// tradernet client packages talk to. It serves the login, session, logout
// and password-change endpoints with pluggable user and token stores.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rapscallion45/tradernet/internal/config"
	"github.com/rapscallion45/tradernet/internal/logging"
	"github.com/rapscallion45/tradernet/internal/server"
	"github.com/rapscallion45/tradernet/internal/server/tokenstore"
	"github.com/rapscallion45/tradernet/internal/server/userstore"
)

func main() {
	configPath := flag.String("config", "tradernet.yaml", "path to config file")
	seedUser := flag.String("seed-user", "", "create a user at startup (username:password[:expired])")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogJSON).With().Str("service", "tradernetd").Logger()

	if cfg.Server.SigningKey == "" {
		log.Fatal().Msg("server.signing_key is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, err := newUserStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("user store init failed")
	}
	defer users.Close()

	tokens, err := newTokenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("token store init failed")
	}
	defer tokens.Close()

	if *seedUser != "" {
		if err := seed(ctx, users, *seedUser); err != nil {
			log.Fatal().Err(err).Msg("seed user failed")
		}
	}

	srv := server.New(server.Config{
		SigningKey:         []byte(cfg.Server.SigningKey),
		SessionTTL:         cfg.Server.SessionTTL,
		Password:           cfg.Server.Password,
		Users:              users,
		Tokens:             tokens,
		Logger:             log,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		LoginRatePerSecond: cfg.Server.LoginRatePerSecond,
		LoginBurst:         cfg.Server.LoginBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func newUserStore(ctx context.Context, cfg config.Config) (userstore.Store, error) {
	if cfg.Server.DatabaseURL != "" {
		return userstore.NewPostgres(ctx, cfg.Server.DatabaseURL)
	}
	return userstore.NewMemory(), nil
}

func newTokenStore(ctx context.Context, cfg config.Config) (tokenstore.Store, error) {
	if cfg.Server.RedisAddr != "" {
		return tokenstore.NewRedis(ctx, cfg.Server.RedisAddr)
	}
	return tokenstore.NewMemory(), nil
}

// seed parses username:password[:expired] and creates the account. Existing
// accounts are left alone so restarts are idempotent.
func seed(ctx context.Context, users userstore.Store, spec string) error {
	username, password, expired, err := parseSeed(spec)
	if err != nil {
		return err
	}
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil
	}
	_, err = users.Create(ctx, username, password, expired)
	return err
}

func parseSeed(spec string) (username, password string, expired bool, err error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false, errors.New("seed-user must be username:password[:expired]")
	}
	username, password = parts[0], parts[1]
	expired = len(parts) == 3 && parts[2] == "expired"
	return username, password, expired, nil
}
