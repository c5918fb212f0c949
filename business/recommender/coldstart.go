package recommender

import (
	"context"
	"math"
	"sort"
	"time"

	"shopRecs/domain"
)

// coldStart serves sparse visitors: enough history to show taste, too
// little for the learned components. The visitor's recent interactions
// are clustered into high-interest anchors by cumulative weighted score;
// anchors steer category, tag and price-band affinity but are themselves never
// recommended, and nothing the visitor already saw is returned.
func (s *RecommenderService) coldStart(ctx context.Context, actor domain.Actor, segment domain.Segment, limit int) ([]domain.ScoredProduct, error) {
	interactions, err := s.interactionRepo.FindByActorSince(ctx, actor, time.Now().Add(-s.cfg.RecentWindow))
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return s.coldBlend(ctx, limit)
	}

	interest := make(map[uint64]float64)
	for _, interaction := range interactions {
		interest[interaction.ProductID] += s.interactionWeight(interaction.Kind)
	}

	threshold := s.cfg.IdentifiedInterestThreshold
	if segment == domain.SegmentAnonymousWarm {
		threshold = s.cfg.AnonymousInterestThreshold
	}

	seen := make(map[uint64]bool, len(interest))
	var anchorIDs []uint64
	for productID, score := range interest {
		seen[productID] = true
		if score >= threshold {
			anchorIDs = append(anchorIDs, productID)
		}
	}
	if len(anchorIDs) == 0 {
		// nothing crossed the interest bar; every seen item steers
		for productID := range interest {
			anchorIDs = append(anchorIDs, productID)
		}
	}

	anchors, err := s.productRepo.FindByIDs(ctx, anchorIDs)
	if err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		return s.coldBlend(ctx, limit)
	}

	categoryAffinity := make(map[string]float64)
	tagAffinity := make(map[string]float64)
	anchorBands := make(map[string]bool)
	var priceSum float64
	for _, anchor := range anchors {
		categoryAffinity[anchor.Category] += interest[anchor.ID]
		for _, tag := range anchor.TagList() {
			tagAffinity[tag] += interest[anchor.ID]
		}
		anchorBands[priceBand(anchor.DiscountedPrice())] = true
		priceSum += anchor.DiscountedPrice()
	}
	avgPrice := priceSum / float64(len(anchors))

	candidates, err := s.productRepo.FindInStock(ctx)
	if err != nil {
		return nil, err
	}

	score := func(p domain.Product) float64 {
		affinity := categoryAffinity[p.Category]
		for _, tag := range p.TagList() {
			affinity += tagAffinity[tag] * s.cfg.TagAffinityWeight
		}
		priceDistance := math.Abs(p.DiscountedPrice()-avgPrice) / math.Max(avgPrice, 1)
		return affinity + 1.0/(1.0+priceDistance)
	}

	// first the anchor price bands, then adjacent bands, then anything
	result := make([]domain.ScoredProduct, 0, limit)
	taken := make(map[uint64]bool)
	for _, bands := range []map[string]bool{anchorBands, widenBands(anchorBands), nil} {
		if len(result) >= limit {
			break
		}

		var pool []domain.Product
		for _, p := range candidates {
			if seen[p.ID] || taken[p.ID] {
				continue
			}
			if bands != nil && !bands[priceBand(p.DiscountedPrice())] {
				continue
			}
			if bands != nil && categoryAffinity[p.Category] == 0 {
				continue
			}
			pool = append(pool, p)
		}

		sort.SliceStable(pool, func(i, j int) bool {
			si, sj := score(pool[i]), score(pool[j])
			if si != sj {
				return si > sj
			}
			return pool[i].ID < pool[j].ID
		})

		for _, p := range pool {
			if len(result) >= limit {
				break
			}
			taken[p.ID] = true
			result = append(result, domain.ScoredProduct{
				ProductID: p.ID,
				Score:     score(p),
				Sources:   []string{domain.ComponentColdStart},
			})
		}
	}

	return result, nil
}

func (s *RecommenderService) interactionWeight(kind string) float64 {
	switch kind {
	case domain.InteractionView:
		return s.cfg.ViewWeight
	case domain.InteractionClick:
		return s.cfg.ClickWeight
	case domain.InteractionAddToCart:
		return s.cfg.CartWeight
	case domain.InteractionPurchase:
		return s.cfg.PurchaseWeight
	default:
		return s.cfg.ViewWeight
	}
}

var bandOrder = []string{"budget", "mid", "premium", "luxury"}

// widenBands returns the given bands plus their neighbors in price order.
func widenBands(bands map[string]bool) map[string]bool {
	widened := make(map[string]bool, len(bands)+2)
	for i, band := range bandOrder {
		if !bands[band] {
			continue
		}
		widened[band] = true
		if i > 0 {
			widened[bandOrder[i-1]] = true
		}
		if i < len(bandOrder)-1 {
			widened[bandOrder[i+1]] = true
		}
	}
	return widened
}
