package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradleygolden/userapi/internal/api"
	"github.com/bradleygolden/userapi/internal/auth"
	"github.com/bradleygolden/userapi/internal/config"
	"github.com/bradleygolden/userapi/internal/database"
	"github.com/bradleygolden/userapi/internal/logger"
	"github.com/bradleygolden/userapi/internal/ratelimit"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Set up database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up auth
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, hasher, eventService)
	gate := auth.NewGate(userService, tokens, hasher)

	// Rate limiting is optional and only runs against a reachable Redis
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, rate limiting disabled")
		} else {
			limiter = ratelimit.New(rdb, cfg.RateLimit, cfg.RateLimitWindow)
			log.Info().Int("limit", cfg.RateLimit).Dur("window", cfg.RateLimitWindow).Msg("Rate limiting enabled")
		}
	}

	// Set up router
	router := api.NewRouter(api.Options{AllowedOrigins: cfg.CORSAllowedOrigins}, gate, tokens, limiter, userService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Str("db", string(db.Dialect)).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
