// main is the entry point of the EduTestor web application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus optional .env)
//  2. Initialise the logger
//  3. Open (and set up) the SQLite database
//  4. Pick the session backend (SQLite, Redis or bbolt)
//  5. Register all HTTP routes
//  6. Start the HTTP server in a separate goroutine
//  7. Block until an OS signal arrives, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/edutestor --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/edutestor
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VanDeGall/EduTestor/internal/auth"
	"github.com/VanDeGall/EduTestor/internal/config"
	"github.com/VanDeGall/EduTestor/internal/http/handlers/health"
	"github.com/VanDeGall/EduTestor/internal/http/routes"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/session/boltstore"
	"github.com/VanDeGall/EduTestor/internal/session/redisstore"
	"github.com/VanDeGall/EduTestor/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	// Handlers log through the package-level slog functions.
	slog.SetDefault(log)

	log.Info("starting edutestor",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	storage, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	// ── Session backend ───────────────────────────────────────────────────
	var (
		store   session.Store = storage
		pingers []health.Pinger
	)
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rs := redisstore.New(
			redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cfg.Session.TTL,
		)
		defer rs.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rs.Ping(ctx)
		cancel()
		if err != nil {
			log.Error("failed to reach redis",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()))
			os.Exit(1)
		}

		store = rs
		pingers = append(pingers, rs)

	case config.SessionBackendBolt:
		bs, err := boltstore.Open(cfg.Bolt.Path, cfg.Session.TTL)
		if err != nil {
			log.Error("failed to open session file",
				slog.String("path", cfg.Bolt.Path),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer bs.Close()

		store = bs
		pingers = append(pingers, bs)
	}
	log.Info("session store ready", slog.String("backend", cfg.Session.Backend))

	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.SecureCookie,
	}, log)

	if cfg.Security.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; API tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		log.Error("failed to set up API tokens", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := routes.New(routes.Deps{
		Storage:  storage,
		Sessions: sessions,
		Hasher:   auth.NewHasher(cfg.Security.BcryptCost),
		Tokens:   tokens,
		Logger:   log,
		Pingers:  pingers,
	})

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router,

		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ListenAndServe blocks, so it runs in its own goroutine and main
	// waits for a signal below.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// In-flight requests get five seconds to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
