package basket

import (
	"math"
	"time"

	"shopRecs/domain"
)

type pair struct {
	a, b uint64
}

// associationData is the market-basket model built from order history:
// a symmetric co-occurrence matrix plus per-product order counts.
type associationData struct {
	coOccurrence  map[pair]float64
	productCounts map[uint64]int
	totalOrders   int
}

// buildAssociations folds orders into the co-occurrence matrix. With a
// half-life configured, older orders contribute less; a pair bought
// together yesterday outweighs the same pair from last quarter.
func buildAssociations(orders []domain.Order, cfg Config, now time.Time) associationData {
	data := associationData{
		coOccurrence:  make(map[pair]float64),
		productCounts: make(map[uint64]int),
	}

	for _, order := range orders {
		if len(order.Lines) == 0 {
			continue
		}
		data.totalOrders++

		weight := 1.0
		if cfg.DecayHalfLife > 0 {
			days := now.Sub(order.CreatedAt).Hours() / 24
			halfLifeDays := cfg.DecayHalfLife.Hours() / 24
			weight = 1.0 / (1.0 + days/halfLifeDays)
		}

		products := make([]uint64, 0, len(order.Lines))
		seen := make(map[uint64]bool, len(order.Lines))
		for _, line := range order.Lines {
			if !seen[line.ProductID] {
				seen[line.ProductID] = true
				products = append(products, line.ProductID)
			}
		}

		for _, productID := range products {
			data.productCounts[productID]++
		}
		for i, p1 := range products {
			for _, p2 := range products[i+1:] {
				data.coOccurrence[pair{p1, p2}] += weight
				data.coOccurrence[pair{p2, p1}] += weight
			}
		}
	}

	return data
}

// score rates how strongly owning anchor implies buying target:
// confidence times lift, dampened by ln(1+co-occurrence) so a rule seen
// once does not dominate. Zero below the support or confidence floors.
func (d associationData) score(anchor, target uint64, cfg Config) float64 {
	co := d.coOccurrence[pair{anchor, target}]
	if co < cfg.MinSupport {
		return 0
	}

	anchorCount := d.productCounts[anchor]
	if anchorCount == 0 {
		anchorCount = 1
	}
	confidence := co / float64(anchorCount)
	if confidence < cfg.MinConfidence {
		return 0
	}

	targetCount := d.productCounts[target]
	if targetCount == 0 {
		targetCount = 1
	}
	totalOrders := d.totalOrders
	if totalOrders == 0 {
		totalOrders = 1
	}
	targetProbability := float64(targetCount) / float64(totalOrders)
	if targetProbability < cfg.LiftProbabilityFloor {
		targetProbability = cfg.LiftProbabilityFloor
	}
	lift := confidence / targetProbability

	return confidence * lift * math.Log(1+co)
}
