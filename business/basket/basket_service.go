package basket

import (
	"context"
	"sort"
	"time"

	"shopRecs/domain"
)

type OrdersRepository interface {
	FindSince(ctx context.Context, since time.Time) ([]domain.Order, error)
	PurchasedProductIDs(ctx context.Context, userID uint) ([]uint64, error)
	RecentPurchasedProductIDs(ctx context.Context, userID uint, since time.Time, limit int) ([]uint64, error)
}

// BasketService mines "frequently bought together" rules from order
// history and applies them to carts, single products, and abandoned-cart
// recovery.
type BasketService struct {
	ordersRepo OrdersRepository
	cfg        Config
}

func NewBasketService(ordersRepo OrdersRepository, cfg Config) *BasketService {
	return &BasketService{
		ordersRepo: ordersRepo,
		cfg:        cfg,
	}
}

// CartRecommendations scores candidates by their summed association with
// every item in the cart. Items already in the cart are skipped. With
// diversify set, the top pick of each category is surfaced first.
func (s *BasketService) CartRecommendations(ctx context.Context, cartProductIDs []uint64, candidates []domain.Product, limit int, diversify bool) ([]domain.ScoredProduct, error) {
	if len(cartProductIDs) == 0 || limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	data, err := s.associations(ctx)
	if err != nil {
		return nil, err
	}

	inCart := make(map[uint64]bool, len(cartProductIDs))
	for _, id := range cartProductIDs {
		inCart[id] = true
	}

	var scored []domain.ScoredProduct
	for _, candidate := range candidates {
		if inCart[candidate.ID] {
			continue
		}

		var total float64
		for _, cartItemID := range cartProductIDs {
			total += data.score(cartItemID, candidate.ID, s.cfg)
		}
		if total > 0 {
			scored = append(scored, domain.ScoredProduct{
				ProductID: candidate.ID,
				Score:     total,
				Sources:   []string{domain.ComponentAssociation},
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if diversify {
		scored = diversifyByCategory(scored, candidates, limit)
	} else if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

// Complementary ranks candidates frequently bought with one product.
func (s *BasketService) Complementary(ctx context.Context, productID uint64, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error) {
	if limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	data, err := s.associations(ctx)
	if err != nil {
		return nil, err
	}

	var scored []domain.ScoredProduct
	for _, candidate := range candidates {
		if candidate.ID == productID {
			continue
		}
		if score := data.score(productID, candidate.ID, s.cfg); score > 0 {
			scored = append(scored, domain.ScoredProduct{
				ProductID: candidate.ID,
				Score:     score,
				Sources:   []string{domain.ComponentAssociation},
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

// AbandonedCartRecovery suggests products to pull a visitor back after
// they walked away from a cart. Abandoned items anchor the score with a
// boost; the visitor's most recent purchases anchor at normal weight.
// Products already abandoned or already bought are never suggested.
func (s *BasketService) AbandonedCartRecovery(ctx context.Context, userID uint, abandonedItems []uint64, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error) {
	if limit <= 0 {
		return []domain.ScoredProduct{}, nil
	}

	purchased, err := s.ordersRepo.PurchasedProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	historyAnchors, err := s.ordersRepo.RecentPurchasedProductIDs(ctx, userID, time.Time{}, s.cfg.HistoryAnchors)
	if err != nil {
		return nil, err
	}

	data, err := s.associations(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uint64]bool, len(abandonedItems)+len(purchased))
	for _, id := range abandonedItems {
		excluded[id] = true
	}
	for _, id := range purchased {
		excluded[id] = true
	}

	var scored []domain.ScoredProduct
	for _, candidate := range candidates {
		if excluded[candidate.ID] {
			continue
		}

		var total float64
		for _, itemID := range abandonedItems {
			total += data.score(itemID, candidate.ID, s.cfg) * s.cfg.AbandonedBoost
		}
		for _, itemID := range historyAnchors {
			total += data.score(itemID, candidate.ID, s.cfg)
		}

		if total > 0 {
			scored = append(scored, domain.ScoredProduct{
				ProductID: candidate.ID,
				Score:     total,
				Sources:   []string{domain.ComponentAssociation},
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

func (s *BasketService) associations(ctx context.Context) (associationData, error) {
	orders, err := s.ordersRepo.FindSince(ctx, time.Time{})
	if err != nil {
		return associationData{}, err
	}

	return buildAssociations(orders, s.cfg, time.Now()), nil
}

// diversifyByCategory reorders a ranked list so the first pass takes the
// best product of each category, then backfills by raw rank.
func diversifyByCategory(scored []domain.ScoredProduct, candidates []domain.Product, limit int) []domain.ScoredProduct {
	categoryByID := make(map[uint64]string, len(candidates))
	for _, c := range candidates {
		categoryByID[c.ID] = c.Category
	}

	diversified := make([]domain.ScoredProduct, 0, limit)
	taken := make(map[uint64]bool)
	categoriesSeen := make(map[string]bool)

	for _, sp := range scored {
		if len(diversified) >= limit {
			break
		}
		category := categoryByID[sp.ProductID]
		if !categoriesSeen[category] {
			categoriesSeen[category] = true
			taken[sp.ProductID] = true
			diversified = append(diversified, sp)
		}
	}

	for _, sp := range scored {
		if len(diversified) >= limit {
			break
		}
		if !taken[sp.ProductID] {
			taken[sp.ProductID] = true
			diversified = append(diversified, sp)
		}
	}

	return diversified
}
