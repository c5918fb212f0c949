package recommender

import "time"

type Config struct {
	// segment thresholds (§ identified visitors)
	ColdInteractionThreshold   int64
	SparseInteractionThreshold int64
	SparsePurchaseThreshold    int64

	// anonymous visitors only split cold/warm
	AnonymousWarmThreshold int64

	// cold-start clustering: cumulative weighted interest required before
	// an item counts as high-interest
	AnonymousInterestThreshold  float64
	IdentifiedInterestThreshold float64

	// interaction weights for the cold-start interest clustering
	ViewWeight     float64
	ClickWeight    float64
	CartWeight     float64
	PurchaseWeight float64

	// how much anchor tag overlap counts next to a full category match
	TagAffinityWeight float64

	// history considered by the sparse path and the association anchors
	RecentWindow       time.Duration
	MaxPurchaseAnchors int

	// established blend; must cover the four component names
	EstablishedWeights map[string]float64

	// overfetch multiplier so deduplication still fills the limit
	Overfetch int

	RecommendationTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		ColdInteractionThreshold:    5,
		SparseInteractionThreshold:  20,
		SparsePurchaseThreshold:     2,
		AnonymousWarmThreshold:      3,
		AnonymousInterestThreshold:  2.5,
		IdentifiedInterestThreshold: 3.0,
		ViewWeight:                  1.0,
		ClickWeight:                 2.0,
		CartWeight:                  3.0,
		PurchaseWeight:              5.0,
		TagAffinityWeight:           0.25,
		RecentWindow:                30 * 24 * time.Hour,
		MaxPurchaseAnchors:          10,
		EstablishedWeights: map[string]float64{
			"preference":   0.3,
			"neighbors":    0.3,
			"association":  0.2,
			"best_sellers": 0.2,
		},
		Overfetch:         2,
		RecommendationTTL: time.Hour,
	}
}
