package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"friendlink/internal/config"
	"friendlink/internal/httpapi"
	"friendlink/internal/identity"
	"friendlink/internal/service"
	"friendlink/internal/store/postgres"
)

func main() {
	// .env is a dev convenience; prod configures through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		friendsSvc *service.FriendsService
		identityFn httpapi.IdentityFunc
		dbPing     func(context.Context) error
	)

	if cfg.DBDSN != "" {
		db, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		users := postgres.NewUsersStore(db)
		requests := postgres.NewFriendRequestsStore(db)

		friendsSvc = &service.FriendsService{
			Users:      users,
			Requests:   requests,
			Tx:         db,
			RequestTTL: cfg.RequestTTL,
		}
		identityFn = identity.FromHeader(users)
		dbPing = db.Ping
	}

	httpapi.RegisterMetrics()

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:   logger,
		IsProd:   cfg.IsProd(),
		DBPing:   dbPing,
		Friends:  friendsSvc,
		Identity: identityFn,
	})

	root := http.NewServeMux()
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/", apiRouter)

	var handler http.Handler = root
	if len(cfg.CORSOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", identity.UserIDHeader}),
		)(root)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
