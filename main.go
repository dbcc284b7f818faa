package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"main/config"
	"main/handler"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}

	// Check required environment variables
	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"JWT_SECRET_KEY",
		"PORT",
	}

	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()

	if os.Getenv("GO_ENV") != "test" {
		utils.InitJWT()
		utils.InitMongoClient()
	}
}

type appDeps struct {
	sessions  *handler.SessionHandler
	activity  *handler.ActivityHandler
	summaries *handler.SummaryHandler
	relay     *handler.RelayHandler
	health    gin.HandlerFunc
}

func setupRouter(deps appDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	// Operational endpoints, no auth
	router.GET("/health", deps.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes (identity required)
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("/start", deps.sessions.StartSession)
			sessions.GET("/", deps.sessions.ListSessions)
			sessions.GET("/:id", deps.sessions.GetSession)
			sessions.POST("/:id/stop", deps.sessions.StopSession)
			sessions.POST("/:id/activity", deps.activity.RecordActivity)
		}

		summaries := api.Group("/summaries")
		{
			summaries.GET("/:date", deps.summaries.GetSummary)
			summaries.POST("/:date/rollup", deps.summaries.TriggerRollup)
		}

		api.GET("/stream", deps.relay.Stream)
		api.GET("/stream/observe", deps.relay.StreamObserver)
	}

	return router
}

func main() {
	trackingCfg := config.LoadTrackingConfig()
	dbCfg := config.LoadDatabaseConfig()

	// Repositories
	sessionRepo := repository.GetSessionRepo(utils.MongoClient)
	eventRepo := repository.GetEventLogRepo(utils.MongoClient)
	summaryRepo := repository.GetSummaryRepo(utils.MongoClient)

	if err := repository.SetupIndexes(utils.MongoClient.Database(dbCfg.DatabaseName)); err != nil {
		log.Fatalf("Failed to set up indexes: %v", err)
	}

	// Relay and snapshot cache
	relay := services.NewRelay(trackingCfg.RelayBufferSize)

	var cache *services.SnapshotCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		var err error
		cache, err = services.NewSnapshotCache(redisURL, trackingCfg.SnapshotTTL)
		if err != nil {
			log.Printf("Warning: snapshot cache disabled: %v", err)
			cache = nil
		}
	}

	// Core services
	aggregator := usecase.NewAggregator(sessionRepo, eventRepo,
		trackingCfg.DirtyQueueSize, trackingCfg.AggregationMaxAttempts, trackingCfg.AggregationBackoffBase)
	aggregator.Relay = relay
	aggregator.Cache = cache
	aggregator.ReconcileInterval = trackingCfg.ReconcileInterval

	sessionService := usecase.NewSessionService(sessionRepo, aggregator)
	sessionService.Relay = relay
	sessionService.Cache = cache

	activityService := usecase.NewActivityService(sessionRepo, eventRepo, aggregator, trackingCfg.ActivitySkewTolerance)
	activityService.Relay = relay

	rollupService := usecase.NewRollupService(sessionRepo, summaryRepo, trackingCfg.RollupInterval)
	rollupService.Relay = relay

	// Background loops
	ctx, cancel := context.WithCancel(context.Background())
	go aggregator.Run(ctx)
	go rollupService.Run(ctx)

	router := setupRouter(appDeps{
		sessions:  handler.NewSessionHandler(sessionService),
		activity:  handler.NewActivityHandler(activityService),
		summaries: handler.NewSummaryHandler(rollupService, summaryRepo),
		relay:     handler.NewRelayHandler(relay),
		health:    handler.NewHealthHandler(cache),
	})

	// Graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		log.Printf("Caught signal %s, shutting down", sig)
		cancel()
		if cache != nil {
			cache.Close()
		}
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	serverAddr := fmt.Sprintf(":%s", port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
