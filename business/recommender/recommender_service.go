package recommender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
	"shopRecs/pkg/logger"
	"shopRecs/pkg/metrics"
)

type AnalyticsService interface {
	BestSellers(ctx context.Context, window, category string, limit int) ([]uint64, error)
	Trending(ctx context.Context, category string, limit int) ([]uint64, error)
	Popular(ctx context.Context, limit int) ([]uint64, error)
}

type PreferenceService interface {
	Recommend(ctx context.Context, userID uint, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error)
}

type NeighborsService interface {
	Recommend(ctx context.Context, actor domain.Actor, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error)
}

type BasketService interface {
	CartRecommendations(ctx context.Context, cartProductIDs []uint64, candidates []domain.Product, limit int, diversify bool) ([]domain.ScoredProduct, error)
	Complementary(ctx context.Context, productID uint64, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error)
	AbandonedCartRecovery(ctx context.Context, userID uint, abandonedItems []uint64, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error)
}

type InteractionRepository interface {
	CountByActor(ctx context.Context, actor domain.Actor) (int64, error)
	FindByActorSince(ctx context.Context, actor domain.Actor, since time.Time) ([]domain.Interaction, error)
	MostActiveUsers(ctx context.Context, limit int) ([]domain.UserActivity, error)
}

type OrdersRepository interface {
	CountByUser(ctx context.Context, userID uint) (int64, error)
	RecentPurchasedProductIDs(ctx context.Context, userID uint, since time.Time, limit int) ([]uint64, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.Product, error)
	FindInStock(ctx context.Context) ([]domain.Product, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
}

// RecommenderService is the entry point of the engine: it routes the
// visitor to a segment and blends the component scorers accordingly.
// Component failures degrade to an empty contribution; the only hard
// errors out of Recommend are storage failures on the fallback path.
type RecommenderService struct {
	analytics       AnalyticsService
	preference      PreferenceService
	neighbors       NeighborsService
	basket          BasketService
	interactionRepo InteractionRepository
	ordersRepo      OrdersRepository
	productRepo     ProductRepository
	cache           *cache.ResultCache
	cfg             Config
}

func NewRecommenderService(
	analyticsService AnalyticsService,
	preferenceService PreferenceService,
	neighborsService NeighborsService,
	basketService BasketService,
	interactionRepo InteractionRepository,
	ordersRepo OrdersRepository,
	productRepo ProductRepository,
	resultCache *cache.ResultCache,
	cfg Config,
) *RecommenderService {
	return &RecommenderService{
		analytics:       analyticsService,
		preference:      preferenceService,
		neighbors:       neighborsService,
		basket:          basketService,
		interactionRepo: interactionRepo,
		ordersRepo:      ordersRepo,
		productRepo:     productRepo,
		cache:           resultCache,
		cfg:             cfg,
	}
}

// Recommend returns up to limit ranked products for the visitor, with the
// contributing components attached to each entry. A weight override (keys
// from the component name constants) reweights the established blend and
// bypasses the result cache.
func (s *RecommenderService) Recommend(ctx context.Context, actor domain.Actor, limit int, weightOverride map[string]float64) ([]domain.ScoredProduct, domain.Segment, error) {
	if !actor.Valid() || limit <= 0 {
		return []domain.ScoredProduct{}, "", nil
	}

	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()

	segment, err := s.classify(ctx, actor)
	if err != nil {
		return nil, "", err
	}
	metrics.RecommendTotal.WithLabelValues(string(segment)).Inc()

	cacheable := len(weightOverride) == 0
	key := s.recommendationKey(actor, limit)
	if cacheable {
		var cached []domain.ScoredProduct
		if s.cache.Get(ctx, key, &cached) {
			return cached, segment, nil
		}
	}

	var result []domain.ScoredProduct
	switch segment {
	case domain.SegmentAnonymousCold, domain.SegmentNewIdentified:
		result, err = s.coldBlend(ctx, limit)
	case domain.SegmentAnonymousWarm, domain.SegmentSparseIdentified:
		result, err = s.coldStart(ctx, actor, segment, limit)
	default:
		result, err = s.establishedBlend(ctx, actor, limit, weightOverride)
	}
	if err != nil {
		return nil, segment, err
	}

	if cacheable {
		s.cache.Set(ctx, key, result, s.cfg.RecommendationTTL)
	}

	return result, segment, nil
}

func (s *RecommenderService) classify(ctx context.Context, actor domain.Actor) (domain.Segment, error) {
	interactionCount, err := s.interactionRepo.CountByActor(ctx, actor)
	if err != nil {
		return "", fmt.Errorf("failed to classify visitor: %w", err)
	}

	var purchaseCount int64
	if !actor.Anonymous() {
		purchaseCount, err = s.ordersRepo.CountByUser(ctx, actor.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to classify visitor: %w", err)
		}
	}

	return Classify(s.cfg, actor.Anonymous(), interactionCount, purchaseCount), nil
}

// AlgorithmWeights reports the segment the visitor would route to and the
// component weights that segment uses. Introspection only; no scoring.
func (s *RecommenderService) AlgorithmWeights(ctx context.Context, actor domain.Actor) (domain.Segment, map[string]float64, error) {
	if !actor.Valid() {
		return "", nil, nil
	}

	segment, err := s.classify(ctx, actor)
	if err != nil {
		return "", nil, err
	}

	return segment, s.segmentWeights(segment), nil
}

func (s *RecommenderService) segmentWeights(segment domain.Segment) map[string]float64 {
	switch segment {
	case domain.SegmentAnonymousCold, domain.SegmentNewIdentified:
		return map[string]float64{
			domain.ComponentBestSellers: 0.5,
			domain.ComponentTrending:    0.5,
		}
	case domain.SegmentAnonymousWarm, domain.SegmentSparseIdentified:
		return map[string]float64{domain.ComponentColdStart: 1.0}
	default:
		weights := make(map[string]float64, len(s.cfg.EstablishedWeights))
		for component, weight := range s.cfg.EstablishedWeights {
			weights[component] = weight
		}
		return weights
	}
}

// CartRecommendations runs the association engine over the current cart
// against the in-stock catalog.
func (s *RecommenderService) CartRecommendations(ctx context.Context, cartProductIDs []uint64, limit int, diversify bool) ([]domain.ScoredProduct, error) {
	if len(cartProductIDs) == 0 || limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	candidates, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return nil, err
	}

	return s.basket.CartRecommendations(ctx, cartProductIDs, candidates, limit, diversify)
}

// Complementary lists items frequently bought with the given product. An
// unknown anchor yields an empty list, not an error.
func (s *RecommenderService) Complementary(ctx context.Context, productID uint64, limit int) ([]domain.ScoredProduct, error) {
	if productID == 0 || limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return []domain.ScoredProduct{}, nil
		}
		return nil, err
	}

	candidates, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return nil, err
	}

	return s.basket.Complementary(ctx, productID, candidates, limit)
}

// AbandonedCartRecovery suggests items to win back a visitor who left a
// cart behind.
func (s *RecommenderService) AbandonedCartRecovery(ctx context.Context, userID uint, abandonedItems []uint64, limit int) ([]domain.ScoredProduct, error) {
	if userID == 0 || len(abandonedItems) == 0 || limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	candidates, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return nil, err
	}

	return s.basket.AbandonedCartRecovery(ctx, userID, abandonedItems, candidates, limit)
}

// Warmup primes the result cache: the aggregate reads every cold request
// needs, plus fresh recommendations for the most active identified
// visitors. Called at startup and after each rollup.
func (s *RecommenderService) Warmup(ctx context.Context, limit int) error {
	for _, window := range []string{domain.Window7d, domain.Window30d, domain.Window90d, domain.WindowAll} {
		if _, err := s.analytics.BestSellers(ctx, window, "", limit); err != nil {
			return fmt.Errorf("cache warmup: %w", err)
		}
	}
	if _, err := s.analytics.Trending(ctx, "", limit); err != nil {
		return fmt.Errorf("cache warmup: %w", err)
	}

	active, err := s.interactionRepo.MostActiveUsers(ctx, limit)
	if err != nil {
		return fmt.Errorf("cache warmup: %w", err)
	}
	warmed := 0
	for _, activity := range active {
		if _, _, err := s.Recommend(ctx, domain.Actor{UserID: activity.UserID}, 10, nil); err != nil {
			logger.Warn("warmup skipped visitor", "user_id", activity.UserID, "error", err)
			continue
		}
		warmed++
	}

	logger.Info("result cache warmed", "aggregate_limit", limit, "visitors", warmed)
	return nil
}

// InvalidateVisitor drops every cached result keyed to the visitor, after
// a new interaction or purchase changes their evidence.
func (s *RecommenderService) InvalidateVisitor(ctx context.Context, actor domain.Actor) {
	if actor.Anonymous() {
		s.cache.Invalidate(ctx, fmt.Sprintf("session_id=%s", actor.SessionID))
		return
	}
	s.cache.Invalidate(ctx, fmt.Sprintf("user_id=%d", actor.UserID))
}

// InvalidateProduct drops cached aggregates after a stock or price change.
func (s *RecommenderService) InvalidateProduct(ctx context.Context, productID uint64) {
	s.cache.Invalidate(ctx, fmt.Sprintf("product_id=%d", productID))
	s.cache.Invalidate(ctx, "best_sellers")
	s.cache.Invalidate(ctx, "trending")
}

func (s *RecommenderService) InvalidateCategory(ctx context.Context, category string) {
	s.cache.Invalidate(ctx, fmt.Sprintf("category=%s", category))
}

func (s *RecommenderService) recommendationKey(actor domain.Actor, limit int) string {
	args := map[string]any{"limit": limit}
	if actor.Anonymous() {
		args["session_id"] = actor.SessionID
	} else {
		args["user_id"] = actor.UserID
	}
	return s.cache.Key("recommendations", args)
}
