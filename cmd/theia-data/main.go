package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/common/database"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/common/logger"
	redisx "github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/common/redis"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/config"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	httpapi "github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/http"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}
	cfg := config.Load()

	zl, err := logger.NewLogger(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "theia-data",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when enabled. Memory store when disabled, or when
	// unreachable and DB_REQUIRED=false.
	var (
		db        *sql.DB
		dataStore repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			db = d
		} else if cfg.DBRequired {
			zl.Fatal("DB required but connection failed", zap.Error(err))
		} else {
			zl.Warn("DB connection failed, DB_REQUIRED=false so falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		if err := repository.Migrate(ctx, db); err != nil {
			zl.Fatal("Failed to migrate schema", zap.Error(err))
		}
		dataStore = repository.NewPostgresStore(db, cfg.Storage.OpTimeout, cfg.Storage.MaxRetries, zl)
		zl.Info("DB enabled for theia-data")
	} else {
		dataStore = repository.NewMemoryStore()
		zl.Info("Using in-memory store")
	}
	if cfg.SeedUsers {
		if err := repository.Seed(ctx, dataStore, service.HashPassword, repository.DefaultSeedUsers, zl); err != nil {
			zl.Fatal("Failed to seed users", zap.Error(err))
		}
	}

	// Sessions and events: Redis when enabled and reachable, otherwise in-process.
	var (
		redisClient *redis.Client
		sessions    store.SessionStore
		publisher   events.Publisher = events.NopPublisher{}
	)
	if cfg.RedisEnabled {
		if c, err := redisx.Connect(ctx, &cfg.Redis, cfg.Storage.OpTimeout); err == nil {
			redisClient = c
		} else {
			zl.Warn("Redis enabled but unreachable, sessions kept in memory", zap.Error(err))
		}
	}
	if redisClient != nil {
		sessions = store.NewRedisSessionStore(redisClient, cfg.Session.TTL)
		publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream)
	} else {
		sessions = store.NewMemorySessionStore(cfg.Session.TTL)
	}
	publisher = events.NewBestEffort(publisher, zl)

	usersRepo := repository.NewUsersRepo(dataStore)
	pairingsRepo := repository.NewPairingsRepo(dataStore)

	authService := service.NewAuthService(usersRepo, sessions, zl)
	pairingService := service.NewPairingService(usersRepo, pairingsRepo, publisher, zl)
	userService := service.NewUserService(usersRepo, zl)
	tripService := service.NewTripService(repository.NewTripsRepo(dataStore), usersRepo, pairingsRepo, publisher, zl)
	contactService := service.NewContactService(repository.NewContactsRepo(dataStore), zl)
	activityService := service.NewActivityService(repository.NewActivitiesRepo(dataStore), pairingsRepo, publisher, zl)
	conversationService := service.NewConversationService(repository.NewConversationsRepo(dataStore), publisher, zl)

	guards := httpapi.NewGuards(sessions, pairingService, pairingService)
	router := httpapi.NewRouter(cfg.HTTP.CORSAllowedOrigins, zl)
	router.RegisterHealthRoutes()
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, zl), guards)
	router.RegisterUserRoutes(httpapi.NewUserHandler(userService, pairingService, tripService, sessions, zl), guards)
	router.RegisterTrackingRoutes(httpapi.NewTrackingHandler(contactService, tripService, activityService, zl), guards)
	router.RegisterConversationRoutes(httpapi.NewConversationHandler(conversationService, zl), guards)

	srv := service.NewServer(cfg.HTTP.Addr, router, zl)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		zl.Warn("HTTP server shutdown", zap.Error(err))
	}
	_ = redisx.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
}
