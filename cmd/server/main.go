// Package main starts the Nilavanti gate server: configuration, logging,
// PostgreSQL, Redis, the auth service, the reveal media source and HTTP(S).
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/nilavanti/internal/config"
	"github.com/atinyakov/nilavanti/internal/db"
	"github.com/atinyakov/nilavanti/internal/logger"
	"github.com/atinyakov/nilavanti/internal/ratelimit"
	"github.com/atinyakov/nilavanti/internal/repository"
	"github.com/atinyakov/nilavanti/internal/reveal"
	"github.com/atinyakov/nilavanti/internal/security"
	"github.com/atinyakov/nilavanti/internal/server/handler/http"
	"github.com/atinyakov/nilavanti/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse flags, config file and environment.
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize logger.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// Cancel on SIGINT / SIGTERM for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer postgresDB.Close()

	// Prune old login attempts in the background.
	db.StartAttemptCleaner(ctx, postgresDB, time.Hour, options.AttemptRetention, zapLogger)

	// Connect to Redis for sessions and reset tokens.
	rdb, err := repository.ConnectRedis(ctx, options.RedisURL)
	if err != nil {
		return fmt.Errorf("cannot connect to redis: %w", err)
	}
	defer rdb.Close()

	if options.MasterPasswordHash == "" {
		zapLogger.Warn("master password hash is not set; only registered users can log in")
	}

	// Initialize repositories and the auth service.
	users := repository.NewPostgresAuthRepository(postgresDB)
	authService := service.NewAuthService(service.Dependencies{
		Users:    users,
		Sessions: repository.NewRedisSessionStore(rdb),
		Resets:   repository.NewRedisResetStore(rdb),
		Hasher:   security.NewBcryptHasher(0),
		Tokens:   security.NewTokenIssuer(options.JWTSecret),
		Log:      zapLogger,
	}, service.Settings{
		MasterPasswordHash: options.MasterPasswordHash,
		SessionTTL:         options.SessionTTL,
		ResetTTL:           options.ResetTTL,
	})

	// Reveal video: S3 presigned URL or a static URL.
	media, err := newMediaSource(ctx, options)
	if err != nil {
		return fmt.Errorf("cannot init reveal media: %w", err)
	}

	// Per-IP throttle for the credential endpoints.
	limiter := ratelimit.NewRateLimiter(options.RateLimitRPS, options.RateLimitBurst)
	go limiter.StartCleanupWorker(ctx, time.Minute, 10*time.Minute)

	// Set up router with handlers.
	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{AuthService: authService, CookieSecure: options.CookieSecure, Log: zapLogger},
		Nilavanti: &http.NilavantiHandler{Media: media, Users: users, Log: zapLogger},
		Health: &http.HealthHandler{
			Checks:  healthChecks(postgresDB, rdb),
			Timeout: 2 * time.Second,
			Log:     zapLogger,
		},
		Sessions:   authService,
		Limiter:    limiter,
		TrustProxy: options.TrustProxy,
	}, zapLogger)

	// Configure HTTP server.
	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	// Start HTTPS if a certificate is configured, plain HTTP otherwise.
	errCh := make(chan error, 1)
	go func() {
		if options.TLSEnabled() {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown.
	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newMediaSource(ctx context.Context, options *config.Options) (reveal.MediaSource, error) {
	if !options.S3Enabled() {
		return reveal.StaticMedia(options.RevealVideoURL), nil
	}
	return reveal.NewS3Media(ctx, reveal.S3Options{
		Bucket:    options.S3Bucket,
		Key:       options.S3Key,
		Region:    options.S3Region,
		Endpoint:  options.S3Endpoint,
		AccessKey: options.S3AccessKey,
		SecretKey: options.S3SecretKey,
	})
}

func healthChecks(postgresDB *sql.DB, rdb *redis.Client) map[string]http.HealthCheck {
	return map[string]http.HealthCheck{
		"postgres": postgresDB.PingContext,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}
