package preference

import (
	"context"
	"errors"
	"sort"
	"time"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
	"shopRecs/pkg/logger"
)

type InteractionRepository interface {
	CountByActor(ctx context.Context, actor domain.Actor) (int64, error)
	FindByActorSince(ctx context.Context, actor domain.Actor, since time.Time) ([]domain.Interaction, error)
}

type OrdersRepository interface {
	PurchasedProductIDs(ctx context.Context, userID uint) ([]uint64, error)
}

type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
}

// PreferenceService ranks candidates with a per-visitor linear model
// trained on the visitor's own history: products they went on to buy
// against products they only viewed. The scorer declines (returns an
// empty list) whenever the history is too thin to train on.
type PreferenceService struct {
	interactionRepo InteractionRepository
	ordersRepo      OrdersRepository
	productRepo     ProductRepository
	cache           *cache.ResultCache
	cfg             Config
}

func NewPreferenceService(
	interactionRepo InteractionRepository,
	ordersRepo OrdersRepository,
	productRepo ProductRepository,
	resultCache *cache.ResultCache,
	cfg Config,
) *PreferenceService {
	return &PreferenceService{
		interactionRepo: interactionRepo,
		ordersRepo:      ordersRepo,
		productRepo:     productRepo,
		cache:           resultCache,
		cfg:             cfg,
	}
}

// Recommend scores the candidates for the visitor and returns the top
// limit of them, best first. Only identified visitors can have a model.
func (s *PreferenceService) Recommend(ctx context.Context, userID uint, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error) {
	if userID == 0 || limit <= 0 || len(candidates) == 0 {
		return []domain.ScoredProduct{}, nil
	}

	actor := domain.Actor{UserID: userID}
	count, err := s.interactionRepo.CountByActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if count < int64(s.cfg.MinInteractions) {
		return []domain.ScoredProduct{}, nil
	}

	now := time.Now()
	interactions, err := s.interactionRepo.FindByActorSince(ctx, actor, now.Add(-s.cfg.HistoryWindow))
	if err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, interactions)
	if err != nil {
		return nil, err
	}
	profile := BuildProfile(interactions, products, now)

	model, err := s.modelFor(ctx, userID, interactions, products, profile)
	if err != nil {
		if errors.Is(err, ErrOneClass) {
			return []domain.ScoredProduct{}, nil
		}
		return nil, err
	}
	if model == nil {
		return []domain.ScoredProduct{}, nil
	}

	scored := make([]domain.ScoredProduct, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, domain.ScoredProduct{
			ProductID: candidate.ID,
			Score:     model.Score(FeatureVector(profile, candidate)),
			Sources:   []string{domain.ComponentPreference},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

// modelFor returns the visitor's trained model, from cache when possible.
// A nil model with nil error means the history cannot support training.
func (s *PreferenceService) modelFor(ctx context.Context, userID uint, interactions []domain.Interaction, products map[uint64]domain.Product, profile VisitorProfile) (*Model, error) {
	key := s.cache.Key("preference_model", map[string]any{"user_id": userID})

	var cached Model
	if s.cache.Get(ctx, key, &cached) && len(cached.Weights) == featureDim {
		return &cached, nil
	}

	if len(interactions) < s.cfg.MinTrainingInteractions {
		return nil, nil
	}

	purchasedIDs, err := s.ordersRepo.PurchasedProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(purchasedIDs) < s.cfg.MinPurchasedProducts {
		return nil, nil
	}
	purchased := make(map[uint64]bool, len(purchasedIDs))
	for _, id := range purchasedIDs {
		purchased[id] = true
	}

	var samples [][]float64
	var labels []int
	for _, interaction := range interactions {
		product, ok := products[interaction.ProductID]
		if !ok {
			continue
		}
		switch {
		case purchased[interaction.ProductID]:
			samples = append(samples, FeatureVector(profile, product))
			labels = append(labels, 1)
		case interaction.Kind == domain.InteractionView:
			samples = append(samples, FeatureVector(profile, product))
			labels = append(labels, 0)
		}
	}

	model, err := Train(samples, labels, s.cfg)
	if err != nil {
		if errors.Is(err, ErrOneClass) {
			return nil, nil
		}
		return nil, err
	}

	s.cache.Set(ctx, key, model, s.cfg.ModelTTL)
	logger.Debug("trained preference model", "user_id", userID, "samples", len(samples))

	return model, nil
}

func (s *PreferenceService) loadProducts(ctx context.Context, interactions []domain.Interaction) (map[uint64]domain.Product, error) {
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, interaction := range interactions {
		if !seen[interaction.ProductID] {
			seen[interaction.ProductID] = true
			ids = append(ids, interaction.ProductID)
		}
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return byID, nil
}
