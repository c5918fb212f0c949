package rest

import (
	"context"
	"net/http"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
	"shopRecs/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AdminHandler struct {
		validate  *validator.Validate
		rollup    RollupService
		cacheCtl  CacheControlService
		cacheStat CacheStatsProvider
	}

	RollupService interface {
		RunRollup(ctx context.Context, windows []string) error
	}

	CacheControlService interface {
		InvalidateVisitor(ctx context.Context, actor domain.Actor)
		InvalidateProduct(ctx context.Context, productID uint64)
		InvalidateCategory(ctx context.Context, category string)
		Warmup(ctx context.Context, limit int) error
	}

	CacheStatsProvider interface {
		Stats() cache.Stats
	}

	RollupRequest struct {
		Windows []string `json:"windows" validate:"omitempty,dive,oneof=7d 30d 90d all"`
	}

	InvalidateRequest struct {
		UserID    uint   `json:"user_id"`
		SessionID string `json:"session_id"`
		ProductID uint64 `json:"product_id"`
		Category  string `json:"category"`
	}

	WarmupRequest struct {
		N int `json:"n"`
	}
)

func NewAdminHandler(rollup RollupService, cacheCtl CacheControlService, cacheStat CacheStatsProvider) *AdminHandler {
	return &AdminHandler{
		validate:  validator.New(),
		rollup:    rollup,
		cacheCtl:  cacheCtl,
		cacheStat: cacheStat,
	}
}

// POST /api/v1/admin/recommendations/rollup
func (h *AdminHandler) RunRollup(c echo.Context) error {
	var req RollupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.rollup.RunRollup(c.Request().Context(), req.Windows); err != nil {
		logger.Error("manual rollup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("rollup complete"))
}

// POST /api/v1/admin/recommendations/cache/invalidate
//
// Exactly one of user_id/session_id, product_id, or category selects what
// to drop; called by checkout and the interaction tracker after writes.
func (h *AdminHandler) InvalidateCache(c echo.Context) error {
	var req InvalidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx := c.Request().Context()
	switch {
	case req.UserID != 0 || req.SessionID != "":
		h.cacheCtl.InvalidateVisitor(ctx, domain.Actor{UserID: req.UserID, SessionID: req.SessionID})
	case req.ProductID != 0:
		h.cacheCtl.InvalidateProduct(ctx, req.ProductID)
	case req.Category != "":
		h.cacheCtl.InvalidateCategory(ctx, req.Category)
	default:
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "nothing to invalidate"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("cache invalidated"))
}

// POST /api/v1/admin/recommendations/cache/warmup
func (h *AdminHandler) WarmupCache(c echo.Context) error {
	var req WarmupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.N <= 0 {
		req.N = 20
	}

	if err := h.cacheCtl.Warmup(c.Request().Context(), req.N); err != nil {
		logger.Error("cache warmup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("cache warmed"))
}

// GET /api/v1/admin/recommendations/cache/stats
func (h *AdminHandler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.cacheStat.Stats()))
}
