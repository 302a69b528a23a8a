// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/auth"
	"github.com/capitalize-ai/messaging-platform/internal/config"
	"github.com/capitalize-ai/messaging-platform/internal/handler"
	natsclient "github.com/capitalize-ai/messaging-platform/internal/nats"
	"github.com/capitalize-ai/messaging-platform/internal/realtime"
	"github.com/capitalize-ai/messaging-platform/internal/redis"
	"github.com/capitalize-ai/messaging-platform/internal/service"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/internal/store/memory"
	mongostore "github.com/capitalize-ai/messaging-platform/internal/store/mongo"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
	"github.com/capitalize-ai/messaging-platform/pkg/tracing"
)

const serviceName = "messaging-platform"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if os.Getenv("ENV") == "development" {
		log, err = logger.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server", zap.String("store", cfg.StoreBackend))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}

	registry := realtime.NewSessionRegistry()
	var hubOpts []realtime.Option
	var online service.OnlineLister = registry

	// Connect to NATS
	var natsClient *natsclient.Client
	var broker *natsclient.Broker
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			Name:     serviceName,
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}

		// Ensure JetStream stream exists
		if err := natsclient.NewStreamManager(natsClient).EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}

		broker = natsclient.NewBroker(natsClient, log)
		hubOpts = append(hubOpts, realtime.WithBroker(broker))
	}

	// Connect to Redis
	var redisClient *goredis.Client
	var presence *redis.PresenceStore
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		presence = redis.NewPresenceStore(redisClient, cfg.RedisPrefix, cfg.PresenceTTL)
		hubOpts = append(hubOpts, realtime.WithPresence(presence))
		online = presence
	}

	hub := realtime.NewHub(st.Conversations(), registry, log, hubOpts...)

	presenceCtx, stopPresence := context.WithCancel(ctx)
	defer stopPresence()
	if presence != nil {
		go hub.KeepPresence(presenceCtx, presence.TTL()/3)
	}

	stopConsuming := func() {}
	if broker != nil {
		stopConsuming, err = broker.Subscribe(ctx, hub.Apply)
		if err != nil {
			log.Fatal("failed to subscribe to fan-out stream", zap.Error(err))
		}
	}

	// Initialize services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiration)
	userSvc := service.NewUserService(st.Users(), tokens, online, cfg.BcryptCost, log)
	conversationSvc := service.NewConversationService(st, hub, log)
	messageSvc := service.NewMessageService(st, hub, log)

	// Initialize handlers
	var presencePinger handler.Pinger
	if presence != nil {
		presencePinger = presence
	}
	router := handler.NewRouter(handler.RouterConfig{
		Logger:        log,
		Authenticator: userSvc,
		Health:        handler.NewHealthHandler(st, natsClient, presencePinger),
		Users:         handler.NewUserHandler(userSvc, log),
		Conversations: handler.NewConversationHandler(conversationSvc, log),
		Messages:      handler.NewMessageHandler(messageSvc, log),
		Realtime: realtime.NewHandler(hub, userSvc, realtime.HandlerOptions{
			PingInterval:   cfg.WSPingInterval,
			WriteTimeout:   cfg.WSWriteTimeout,
			SendBuffer:     cfg.WSSendBuffer,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}, log),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Sessions must pass through Disconnect while NATS and Redis are still
	// up, otherwise their offline events and presence cleanup are lost.
	stopPresence()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Warn("realtime sessions did not drain", zap.Error(err))
	}
	stopConsuming()

	if natsClient != nil {
		natsClient.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Warn("failed to close store", zap.Error(err))
	}

	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		st, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
}
