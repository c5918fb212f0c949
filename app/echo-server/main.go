package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopRecs/app/echo-server/router"
	"shopRecs/business/analytics"
	"shopRecs/business/basket"
	"shopRecs/business/neighbors"
	"shopRecs/business/preference"
	"shopRecs/business/recommender"
	"shopRecs/internal/middleware"
	psqlRepo "shopRecs/internal/repository/postgres"
	"shopRecs/internal/rest"
	"shopRecs/pkg/cache"
	"shopRecs/pkg/config"
	"shopRecs/pkg/database"
	redisdb "shopRecs/pkg/database/redis"
	"shopRecs/pkg/logger"
	"shopRecs/pkg/metrics"
	"shopRecs/pkg/utils"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting ShopRecs engine", "version", cfg.App.Version)

	utils.InitJWT(cfg.JWT.SecretKey)
	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected successfully")

	// Optional distributed cache tier. Startup continues without it.
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process cache only", "error", err)
			redisClient = nil
		} else {
			defer redisdb.CloseRedisClient(redisClient)
		}
	}

	resultCache := cache.New(cache.Options{
		Redis:      redisClient,
		DefaultTTL: cfg.Cache.DefaultTTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	// Init repo
	interactionRepo := psqlRepo.NewInteractionRepository(db)
	ordersRepo := psqlRepo.NewOrdersRepository(db)
	productRepo := psqlRepo.NewProductRepository(db)
	analyticsRepo := psqlRepo.NewAnalyticsRepository(db)

	// Init service
	analyticsCfg := analytics.DefaultConfig()
	analyticsCfg.TrendingWindow = cfg.Rollup.TrendingWindow
	analyticsCfg.BestSellersTTL = cfg.Cache.BestSellersTTL
	analyticsCfg.TrendingTTL = cfg.Cache.TrendingTTL
	analyticsService := analytics.NewAnalyticsService(
		ordersRepo, interactionRepo, productRepo, analyticsRepo, resultCache, analyticsCfg,
	)

	preferenceService := preference.NewPreferenceService(
		interactionRepo, ordersRepo, productRepo, resultCache, preference.DefaultConfig(),
	)
	neighborsService := neighbors.NewNeighborsService(interactionRepo, neighbors.DefaultConfig())
	basketService := basket.NewBasketService(ordersRepo, basket.DefaultConfig())

	recommenderCfg := recommender.DefaultConfig()
	recommenderCfg.RecommendationTTL = cfg.Cache.RecommendationTTL
	recommenderService := recommender.NewRecommenderService(
		analyticsService, preferenceService, neighborsService, basketService,
		interactionRepo, ordersRepo, productRepo, resultCache, recommenderCfg,
	)

	// Init handler
	recommendationHandler := rest.NewRecommendationHandler(recommenderService)
	analyticsHandler := rest.NewAnalyticsHandler(analyticsService)
	basketHandler := rest.NewBasketHandler(recommenderService)
	adminHandler := rest.NewAdminHandler(analyticsService, recommenderService, resultCache)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Session-ID"},
	}))

	api := e.Group("/api/v1")
	router.SetupRecommendationRoutes(api, recommendationHandler, analyticsHandler, basketHandler)
	router.SetupAdminRoutes(api, adminHandler)
	router.SetupMetricsRoute(e)

	// Periodic rollup; the first run happens right away so a fresh deploy
	// serves best sellers without waiting a full interval.
	rollupCtx, stopRollup := context.WithCancel(context.Background())
	go runRollupLoop(rollupCtx, analyticsService, recommenderService, cfg.Rollup.Interval)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopRollup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

func runRollupLoop(ctx context.Context, analyticsService *analytics.AnalyticsService, recommenderService *recommender.RecommenderService, interval time.Duration) {
	runOnce := func() {
		rollupCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		if err := analyticsService.RunRollup(rollupCtx, nil); err != nil {
			logger.Error("Scheduled rollup failed", "error", err)
			return
		}
		if err := recommenderService.Warmup(rollupCtx, 20); err != nil {
			logger.Warn("Cache warmup after rollup failed", "error", err)
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
