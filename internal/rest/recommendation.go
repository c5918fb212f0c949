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

const sessionHeader = "X-Session-ID"

type (
	RecommendationHandler struct {
		validate *validator.Validate
		service  RecommendationService
	}

	RecommendationService interface {
		Recommend(ctx context.Context, actor domain.Actor, limit int, weightOverride map[string]float64) ([]domain.ScoredProduct, domain.Segment, error)
		AlgorithmWeights(ctx context.Context, actor domain.Actor) (domain.Segment, map[string]float64, error)
	}

	RecommendQuery struct {
		N int `query:"n"`

		// optional established-blend overrides; zero means "not supplied"
		WeightPreference  float64 `query:"w_preference" validate:"gte=0"`
		WeightNeighbors   float64 `query:"w_neighbors" validate:"gte=0"`
		WeightAssociation float64 `query:"w_association" validate:"gte=0"`
		WeightBestSellers float64 `query:"w_best_sellers" validate:"gte=0"`
	}

	RecommendationResponse struct {
		Segment domain.Segment         `json:"segment"`
		Items   []domain.ScoredProduct `json:"items"`
	}
)

func NewRecommendationHandler(svc RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// actorFromContext resolves the visitor: an authenticated user id when the
// optional auth middleware set one, otherwise the session header.
func actorFromContext(c echo.Context) domain.Actor {
	if userID, ok := c.Get("user_id").(uint); ok && userID != 0 {
		return domain.Actor{UserID: userID}
	}
	return domain.Actor{SessionID: c.Request().Header.Get(sessionHeader)}
}

// GET /api/v1/recommendations?n=10
func (h *RecommendationHandler) Recommend(c echo.Context) error {
	actor := actorFromContext(c)
	if !actor.Valid() {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "missing user identity or " + sessionHeader + " header"})
	}

	var q RecommendQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if q.N <= 0 {
		q.N = 10
	}

	items, segment, err := h.service.Recommend(c.Request().Context(), actor, q.N, q.weightOverride())
	if err != nil {
		logger.Error("recommendation request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(RecommendationResponse{
		Segment: segment,
		Items:   items,
	}))
}

// GET /api/v1/recommendations/weights
func (h *RecommendationHandler) Weights(c echo.Context) error {
	actor := actorFromContext(c)
	if !actor.Valid() {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "missing user identity or " + sessionHeader + " header"})
	}

	segment, weights, err := h.service.AlgorithmWeights(c.Request().Context(), actor)
	if err != nil {
		logger.Error("weight introspection failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"segment": segment,
		"weights": weights,
	}))
}

func (q RecommendQuery) weightOverride() map[string]float64 {
	override := make(map[string]float64)
	if q.WeightPreference > 0 {
		override[domain.ComponentPreference] = q.WeightPreference
	}
	if q.WeightNeighbors > 0 {
		override[domain.ComponentNeighbors] = q.WeightNeighbors
	}
	if q.WeightAssociation > 0 {
		override[domain.ComponentAssociation] = q.WeightAssociation
	}
	if q.WeightBestSellers > 0 {
		override[domain.ComponentBestSellers] = q.WeightBestSellers
	}
	if len(override) == 0 {
		return nil
	}
	return override
}
