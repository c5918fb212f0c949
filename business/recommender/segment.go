package recommender

import "shopRecs/domain"

// Classify routes a visitor into a segment from evidence volume alone.
// Deterministic: the same counts always yield the same segment.
func Classify(cfg Config, anonymous bool, interactionCount, purchaseCount int64) domain.Segment {
	if anonymous {
		if interactionCount < cfg.AnonymousWarmThreshold {
			return domain.SegmentAnonymousCold
		}
		return domain.SegmentAnonymousWarm
	}

	switch {
	case interactionCount < cfg.ColdInteractionThreshold:
		return domain.SegmentNewIdentified
	case purchaseCount < cfg.SparsePurchaseThreshold || interactionCount < cfg.SparseInteractionThreshold:
		return domain.SegmentSparseIdentified
	default:
		return domain.SegmentEstablished
	}
}

// splitQuota divides limit across weighted shares with largest-remainder
// rounding, so the parts always sum to exactly limit.
func splitQuota(limit int, weights []float64) []int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 || limit <= 0 {
		return make([]int, len(weights))
	}

	quotas := make([]int, len(weights))
	remainders := make([]float64, len(weights))
	assigned := 0
	for i, w := range weights {
		exact := float64(limit) * w / total
		quotas[i] = int(exact)
		remainders[i] = exact - float64(quotas[i])
		assigned += quotas[i]
	}

	for assigned < limit {
		best := 0
		for i := 1; i < len(remainders); i++ {
			if remainders[i] > remainders[best] {
				best = i
			}
		}
		quotas[best]++
		remainders[best] = -1
		assigned++
	}

	return quotas
}
