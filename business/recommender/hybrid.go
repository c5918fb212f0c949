package recommender

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/samber/lo"

	"shopRecs/domain"
	"shopRecs/pkg/logger"
)

// coldBlend serves visitors with no usable history: half best sellers,
// half trending, deduplicated and shuffled so the page does not look
// identical on every visit. Backfills from popularity, then random
// in-stock items, so the caller gets exactly limit items whenever the
// catalog allows it.
func (s *RecommenderService) coldBlend(ctx context.Context, limit int) ([]domain.ScoredProduct, error) {
	quotas := splitQuota(limit, []float64{0.5, 0.5})

	bestSellers, err := s.analytics.BestSellers(ctx, domain.Window30d, "", quotas[0])
	if err != nil {
		logger.Warn("best sellers unavailable for cold blend", "error", err)
		bestSellers = nil
	}
	trending, err := s.analytics.Trending(ctx, "", quotas[1])
	if err != nil {
		logger.Warn("trending unavailable for cold blend", "error", err)
		trending = nil
	}

	seen := make(map[uint64]bool)
	result := make([]domain.ScoredProduct, 0, limit)
	appendRanked := func(ids []uint64, source string) {
		for i, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			result = append(result, domain.ScoredProduct{
				ProductID: id,
				Score:     rankScore(i, len(ids)),
				Sources:   []string{source},
			})
		}
	}
	appendRanked(bestSellers, domain.ComponentBestSellers)
	appendRanked(trending, domain.ComponentTrending)

	rand.Shuffle(len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})

	if len(result) < limit {
		popular, err := s.analytics.Popular(ctx, limit)
		if err != nil {
			return nil, err
		}
		appendRanked(popular, domain.ComponentPopular)
	}
	if len(result) < limit {
		if err := s.backfillRandomInStock(ctx, &result, seen, limit); err != nil {
			return nil, err
		}
	}

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (s *RecommenderService) backfillRandomInStock(ctx context.Context, result *[]domain.ScoredProduct, seen map[uint64]bool, limit int) error {
	products, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return err
	}

	remaining := lo.Filter(products, func(p domain.Product, _ int) bool {
		return !seen[p.ID]
	})
	rand.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	for _, p := range remaining {
		if len(*result) >= limit {
			break
		}
		seen[p.ID] = true
		*result = append(*result, domain.ScoredProduct{
			ProductID: p.ID,
			Sources:   []string{domain.ComponentColdStart},
		})
	}

	return nil
}

// establishedBlend runs the four component scorers, overfetching so
// deduplication and diversity still fill the limit, and merges them with
// rank-normalized weighted scores.
func (s *RecommenderService) establishedBlend(ctx context.Context, actor domain.Actor, limit int, weightOverride map[string]float64) ([]domain.ScoredProduct, error) {
	weights := s.blendWeights(weightOverride)
	fetch := limit * s.cfg.Overfetch

	candidates, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return nil, err
	}

	type contribution struct {
		score   float64
		sources []string
	}
	merged := make(map[uint64]*contribution)
	add := func(component string, ids []uint64) {
		weight := weights[component]
		if weight <= 0 {
			return
		}
		for i, id := range ids {
			c, ok := merged[id]
			if !ok {
				c = &contribution{}
				merged[id] = c
			}
			c.score += rankScore(i, len(ids)) * weight
			c.sources = append(c.sources, component)
		}
	}

	if prefs, err := s.preference.Recommend(ctx, actor.UserID, candidates, fetch); err != nil {
		logger.Warn("preference scorer failed, omitting contribution", "user_id", actor.UserID, "error", err)
	} else {
		add(domain.ComponentPreference, productIDs(prefs))
	}

	if neighborRecs, err := s.neighbors.Recommend(ctx, actor, candidates, fetch); err != nil {
		logger.Warn("neighbor filter failed, omitting contribution", "user_id", actor.UserID, "error", err)
	} else {
		add(domain.ComponentNeighbors, productIDs(neighborRecs))
	}

	anchors, err := s.ordersRepo.RecentPurchasedProductIDs(ctx, actor.UserID, time.Now().Add(-s.cfg.RecentWindow), s.cfg.MaxPurchaseAnchors)
	if err != nil {
		logger.Warn("could not load association anchors", "user_id", actor.UserID, "error", err)
	} else if len(anchors) > 0 {
		if basketRecs, err := s.basket.CartRecommendations(ctx, anchors, candidates, fetch, false); err != nil {
			logger.Warn("association engine failed, omitting contribution", "user_id", actor.UserID, "error", err)
		} else {
			add(domain.ComponentAssociation, productIDs(basketRecs))
		}
	}

	if bestSellers, err := s.analytics.BestSellers(ctx, domain.Window30d, "", fetch); err != nil {
		logger.Warn("best sellers unavailable, omitting contribution", "error", err)
	} else {
		add(domain.ComponentBestSellers, bestSellers)
	}

	scored := make([]domain.ScoredProduct, 0, len(merged))
	for id, c := range merged {
		scored = append(scored, domain.ScoredProduct{
			ProductID: id,
			Score:     c.score,
			Sources:   lo.Uniq(c.sources),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ProductID < scored[j].ProductID
	})

	byID := lo.KeyBy(candidates, func(p domain.Product) uint64 { return p.ID })

	return diversify(scored, byID, limit), nil
}

// blendWeights applies a caller override to the established weights,
// keeping only recognized component names and renormalizing to sum to 1.
func (s *RecommenderService) blendWeights(override map[string]float64) map[string]float64 {
	if len(override) == 0 {
		return s.cfg.EstablishedWeights
	}

	filtered := make(map[string]float64)
	var total float64
	for component := range s.cfg.EstablishedWeights {
		if w, ok := override[component]; ok && w > 0 {
			filtered[component] = w
			total += w
		}
	}
	if total <= 0 {
		return s.cfg.EstablishedWeights
	}

	for component := range filtered {
		filtered[component] /= total
	}

	return filtered
}

func rankScore(position, count int) float64 {
	if count == 0 {
		return 0
	}
	return 1.0 - float64(position)/float64(count)
}

func productIDs(scored []domain.ScoredProduct) []uint64 {
	return lo.Map(scored, func(sp domain.ScoredProduct, _ int) uint64 { return sp.ProductID })
}

// priceBand buckets a price for the diversity pass.
func priceBand(price float64) string {
	switch {
	case price < 50:
		return "budget"
	case price < 150:
		return "mid"
	case price < 300:
		return "premium"
	default:
		return "luxury"
	}
}

// diversify reorders a ranked list so the first pass favors items from
// categories or price bands not yet represented; a second pass fills the
// remaining slots by raw score.
func diversify(scored []domain.ScoredProduct, products map[uint64]domain.Product, limit int) []domain.ScoredProduct {
	if len(scored) <= limit {
		return scored
	}

	result := make([]domain.ScoredProduct, 0, limit)
	taken := make(map[uint64]bool)
	categoriesSeen := make(map[string]bool)
	bandsSeen := make(map[string]bool)

	for _, sp := range scored {
		if len(result) >= limit {
			break
		}
		product, ok := products[sp.ProductID]
		if !ok {
			continue
		}
		band := priceBand(product.DiscountedPrice())
		if !categoriesSeen[product.Category] || !bandsSeen[band] {
			categoriesSeen[product.Category] = true
			bandsSeen[band] = true
			taken[sp.ProductID] = true
			result = append(result, sp)
		}
	}

	for _, sp := range scored {
		if len(result) >= limit {
			break
		}
		if !taken[sp.ProductID] {
			taken[sp.ProductID] = true
			result = append(result, sp)
		}
	}

	return result
}
