package rest

import (
	"context"
	"net/http"

	"shopRecs/domain"
	"shopRecs/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AnalyticsHandler struct {
		validate *validator.Validate
		service  AnalyticsReadService
	}

	AnalyticsReadService interface {
		BestSellers(ctx context.Context, window, category string, limit int) ([]uint64, error)
		Trending(ctx context.Context, category string, limit int) ([]uint64, error)
	}

	BestSellersQuery struct {
		Window   string `query:"window" validate:"omitempty,oneof=7d 30d 90d all"`
		Category string `query:"category"`
		N        int    `query:"n"`
	}

	TrendingQuery struct {
		Category string `query:"category"`
		N        int    `query:"n"`
	}
)

func NewAnalyticsHandler(svc AnalyticsReadService) *AnalyticsHandler {
	return &AnalyticsHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// GET /api/v1/recommendations/best-sellers?window=30d&category=&n=10
func (h *AnalyticsHandler) BestSellers(c echo.Context) error {
	var q BestSellersQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if q.Window == "" {
		q.Window = domain.Window30d
	}
	if q.N <= 0 {
		q.N = 10
	}

	ids, err := h.service.BestSellers(c.Request().Context(), q.Window, q.Category, q.N)
	if err != nil {
		logger.Error("best-sellers read failed", "window", q.Window, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"window":      q.Window,
		"category":    q.Category,
		"product_ids": ids,
	}))
}

// GET /api/v1/recommendations/trending?category=&n=10
func (h *AnalyticsHandler) Trending(c echo.Context) error {
	var q TrendingQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if q.N <= 0 {
		q.N = 10
	}

	ids, err := h.service.Trending(c.Request().Context(), q.Category, q.N)
	if err != nil {
		logger.Error("trending read failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"category":    q.Category,
		"product_ids": ids,
	}))
}
