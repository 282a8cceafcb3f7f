// cmd/api/main.go
// FutureNet messenger backend entry point.

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

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/assistant"
	"github.com/giit-community/futurenet-backend/internal/common/database"
	"github.com/giit-community/futurenet-backend/internal/common/logger"
	"github.com/giit-community/futurenet-backend/internal/config"
	"github.com/giit-community/futurenet-backend/internal/messenger"
	"github.com/giit-community/futurenet-backend/internal/settings"
	"github.com/giit-community/futurenet-backend/internal/store"
	"github.com/giit-community/futurenet-backend/internal/users"
	"github.com/giit-community/futurenet-backend/internal/voice"
)

func main() {
	// Step 1: Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	// Step 2: Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Step 3: Initialize logger
	log, err := logger.New(logger.Config{Development: cfg.IsDevelopment()})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infow("starting futurenet backend", "environment", cfg.Environment, "port", cfg.Port)

	ctx := context.Background()

	// Step 4: Connect the blob store. Redis when reachable, otherwise an
	// in-memory store so the app still runs in local development.
	var kv store.KV
	if redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL); err != nil {
		log.Warnw("redis unavailable, falling back to in-memory store", "error", err)
		kv = store.NewMemoryKV()
	} else {
		log.Infow("connected to redis", "namespace", cfg.StoreNamespace)
		kv = store.NewRedisKV(redisClient, cfg.StoreNamespace)
		defer redisClient.Close()
	}
	st := store.New(kv, log)

	// Step 5: Users
	userRepo := users.NewRepository(ctx, st, log)
	userService := users.NewService(userRepo, st, cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.BCryptCost, log)
	authMiddleware := users.NewMiddleware(userService)

	// Step 6: Messenger core
	directory := messenger.NewDirectory(ctx, st, log)
	simulator := messenger.NewSimulator(directory, userService, cfg.ReplyDelayMin, cfg.ReplyDelayMax, log)

	var assistantClient messenger.AssistantClient
	if ai, err := assistant.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log); err != nil {
		if errors.Is(err, assistant.ErrMissingAPIKey) {
			log.Warnw("assistant disabled: no API key configured")
		} else {
			log.Warnw("assistant disabled", "error", err)
		}
	} else {
		assistantClient = ai
	}

	messengerService := messenger.NewService(directory, userService, simulator, assistantClient, log)

	hub := messenger.NewHub(log)
	go hub.Run()
	messengerService.SetBroadcaster(hub)

	// Step 7: Media storage
	media, err := buildMediaStorage(cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize media storage", "error", err)
	}

	// Step 8: Settings and voice
	settingsService := settings.NewService(ctx, st, log)
	probe := voice.NewProbe(voice.LoopbackDevice{}, log)

	// Step 9: Router and routes
	router := mux.NewRouter()

	userHandler := users.NewHandler(userService)
	users.RegisterRoutes(router, userHandler, authMiddleware.Authenticate)

	messengerHandler := messenger.NewHandler(messengerService, media, hub, cfg.MaxUploadSize, log)
	messenger.RegisterRoutes(router, messengerHandler, authMiddleware.Authenticate)

	settings.RegisterRoutes(router, settings.NewHandler(settingsService), authMiddleware.Authenticate)
	voice.RegisterRoutes(router, voice.NewHandler(probe), authMiddleware.Authenticate)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalUploadDir))))
	}

	// Step 10: Start the HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	// Step 11: Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http server shutdown failed", "error", err)
	}
	messengerService.Shutdown()
	hub.Shutdown()

	log.Infow("shutdown complete")
}

// buildMediaStorage selects the upload backend from configuration.
func buildMediaStorage(cfg *config.Config, log *zap.SugaredLogger) (messenger.MediaStorage, error) {
	if cfg.UseS3 {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		log.Infow("using s3 media storage", "bucket", cfg.S3BucketName)
		return messenger.NewS3MediaStorage(sess, cfg.S3BucketName, cfg.AWSRegion, cfg.MaxUploadSize), nil
	}

	log.Infow("using local media storage", "dir", cfg.LocalUploadDir)
	return messenger.NewLocalMediaStorage(cfg.LocalUploadDir, cfg.BaseURL, cfg.MaxUploadSize)
}
