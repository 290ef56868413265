// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and HTTP routes
// together and runs the schoolhub server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/config"
	"codeberg.org/oliverandrich/schoolhub/internal/database"
	"codeberg.org/oliverandrich/schoolhub/internal/handlers"
	"codeberg.org/oliverandrich/schoolhub/internal/i18n"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
	"codeberg.org/oliverandrich/schoolhub/internal/services/auth"
	"codeberg.org/oliverandrich/schoolhub/internal/services/email"
	"codeberg.org/oliverandrich/schoolhub/internal/services/session"
	"codeberg.org/oliverandrich/schoolhub/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository and services
	repo := repository.New(db)
	tokens := token.NewStore(repo)

	notifier, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	authService := auth.NewService(repo, tokens, notifier)

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Background sweep of expired tokens
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.Auth.SweepInterval > 0 {
		tokens.StartSweeper(sweepCtx, time.Duration(cfg.Auth.SweepInterval)*time.Minute)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, repo, authService, sessions)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, authService *auth.Service, sessions *session.Manager) {
	h := handlers.New(repo)
	e.GET("/health", h.Health)

	a := handlers.NewAuth(authService, sessions)

	g := e.Group("/auth")
	g.POST("/signup", a.SignUp)
	g.GET("/verify-email", a.VerifyEmail)
	g.POST("/resend-verification", a.ResendVerification)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)

	me := e.Group("/me", a.RequireAuth)
	me.GET("", a.Me)
	me.POST("/change-password", a.ChangePassword)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
