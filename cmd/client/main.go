package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/config"
	"github.com/yogamaster/yoga-client/internal/handlers"
	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/logger"
	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/profile"
	"github.com/yogamaster/yoga-client/internal/router"
	"github.com/yogamaster/yoga-client/internal/server"
	"github.com/yogamaster/yoga-client/internal/service"
	"github.com/yogamaster/yoga-client/internal/session"
	"github.com/yogamaster/yoga-client/internal/tokenstore"
	file_store "github.com/yogamaster/yoga-client/internal/tokenstore/file"
	redis_store "github.com/yogamaster/yoga-client/internal/tokenstore/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.AppEnv)

	var store tokenstore.Store
	if cfg.TokenStoreBackend == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisSettings.Address,
			Password: cfg.RedisSettings.Password,
			DB:       cfg.RedisSettings.DB,
		})
		store = redis_store.NewRedisTokenStore(redisClient)
	} else {
		store = file_store.NewFileTokenStore(cfg.TokenFilePath)
	}

	sessionCache := identity.NewSessionCache(cfg.SessionFilePath)
	identityClient := identity.NewProviderClient(cfg.Identity, cfg.OAuthProviders["GOOGLE"], sessionCache)

	// The bridge is the only writer of session state; the API client
	// reads the live email through it to drop mismatched tokens.
	var bridge *session.Bridge
	apiClient := api.NewClient(cfg.APIBaseURL, store, api.WithCurrentEmail(func() string {
		if bridge == nil {
			return ""
		}
		return bridge.State().Email()
	}))
	bridge = session.NewBridge(apiClient, store)

	detach := bridge.Attach(identityClient)
	defer detach()
	defer apiClient.Close()

	resolver := profile.NewResolver(apiClient, cfg.Profile.Freshness, cfg.Profile.MaxRetries)

	// Drop the cached profile when its session ends so a later sign-in
	// starts from the server record.
	lastEmail := ""
	unsubscribe := bridge.Subscribe(func(state models.SessionState) {
		if email := state.Email(); email != lastEmail {
			if lastEmail != "" {
				resolver.Invalidate(lastEmail)
			}
			lastEmail = email
		}
	})
	defer unsubscribe()

	// 401/403 anywhere: sign out (which clears the token store via the
	// bridge) before the failing call returns to its caller. The guard
	// then redirects the next navigation to /login.
	apiClient.OnAuthFailure(func(status int) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = identityClient.SignOut(ctx)
		_ = store.Clear(ctx)
	})

	enroll := service.NewEnrollService(apiClient, resolver)

	app := server.New()
	router.SetupAuthRoutes(app,
		handlers.NewAuthHandler(identityClient, apiClient),
		handlers.NewOAuthHandler(identityClient, apiClient, cfg),
	)
	router.SetupCatalogRoutes(app, handlers.NewCatalogHandler(apiClient))
	router.SetupGuardedRoutes(app, handlers.NewDashboardHandler(resolver, enroll, bridge), bridge)

	// Rehydrate the persisted session; this emits the initial
	// session-changed event and moves the bridge out of resolving.
	if err := identityClient.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start identity client: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Printf("Client front starting on port %s...", cfg.Port)
		if err := app.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down...")

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Stopped gracefully.")
}
