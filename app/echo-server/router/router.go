package router

import (
	"shopRecs/internal/middleware"
	"shopRecs/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler, analyticsHandler *rest.AnalyticsHandler, basketHandler *rest.BasketHandler) {
	reco := api.Group("/recommendations", middleware.OptionalAuth())

	reco.GET("", handler.Recommend)
	reco.GET("/weights", handler.Weights)

	reco.GET("/best-sellers", analyticsHandler.BestSellers)
	reco.GET("/trending", analyticsHandler.Trending)

	reco.POST("/cart", basketHandler.CartRecommendations)
	reco.GET("/complementary/:id", basketHandler.Complementary)
	reco.POST("/abandoned-cart", basketHandler.AbandonedCartRecovery, middleware.AuthMiddleware())
}

func SetupAdminRoutes(api *echo.Group, handler *rest.AdminHandler) {
	admin := api.Group("/admin/recommendations", middleware.AuthMiddleware(), middleware.AdminOnly())

	admin.POST("/rollup", handler.RunRollup)
	admin.POST("/cache/invalidate", handler.InvalidateCache)
	admin.POST("/cache/warmup", handler.WarmupCache)
	admin.GET("/cache/stats", handler.CacheStats)
}

func SetupMetricsRoute(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
