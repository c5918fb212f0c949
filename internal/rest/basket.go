package rest

import (
	"context"
	"net/http"
	"strconv"

	"shopRecs/domain"
	"shopRecs/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	BasketHandler struct {
		validate *validator.Validate
		service  BasketReadService
	}

	BasketReadService interface {
		CartRecommendations(ctx context.Context, cartProductIDs []uint64, limit int, diversify bool) ([]domain.ScoredProduct, error)
		Complementary(ctx context.Context, productID uint64, limit int) ([]domain.ScoredProduct, error)
		AbandonedCartRecovery(ctx context.Context, userID uint, abandonedItems []uint64, limit int) ([]domain.ScoredProduct, error)
	}

	CartRequest struct {
		ProductIDs []uint64 `json:"product_ids" validate:"required,min=1,dive,required"`
		N          int      `json:"n"`
		Diversify  bool     `json:"diversify"`
	}

	AbandonedCartRequest struct {
		ProductIDs []uint64 `json:"product_ids" validate:"required,min=1,dive,required"`
		N          int      `json:"n"`
	}
)

func NewBasketHandler(svc BasketReadService) *BasketHandler {
	return &BasketHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// POST /api/v1/recommendations/cart
func (h *BasketHandler) CartRecommendations(c echo.Context) error {
	var req CartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.N <= 0 {
		req.N = 10
	}

	items, err := h.service.CartRecommendations(c.Request().Context(), req.ProductIDs, req.N, req.Diversify)
	if err != nil {
		logger.Error("cart recommendation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}

// GET /api/v1/recommendations/complementary/:id?n=5
func (h *BasketHandler) Complementary(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	n, _ := strconv.Atoi(c.QueryParam("n"))
	if n <= 0 {
		n = 5
	}

	items, err := h.service.Complementary(c.Request().Context(), productID, n)
	if err != nil {
		logger.Error("complementary lookup failed", "product_id", productID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}

// POST /api/v1/recommendations/abandoned-cart
func (h *BasketHandler) AbandonedCartRecovery(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req AbandonedCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.N <= 0 {
		req.N = 5
	}

	items, err := h.service.AbandonedCartRecovery(c.Request().Context(), userID, req.ProductIDs, req.N)
	if err != nil {
		logger.Error("abandoned-cart recovery failed", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}
