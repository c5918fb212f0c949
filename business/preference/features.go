package preference

import (
	"time"

	"shopRecs/domain"
)

// featureDim is the width of the vector handed to the linear model:
// price difference, price ratio, category affinity, brand affinity,
// recency, purchase frequency, and a 3-way price-tier one-hot.
const featureDim = 9

// VisitorProfile summarizes a visitor's recent history into the taste
// signals the feature vector is built from. Affinities are interaction
// shares, so they sum to 1 across categories (and across brands).
type VisitorProfile struct {
	AvgPrice          float64
	CategoryAffinity  map[string]float64
	BrandAffinity     map[string]float64
	AvgDaysSince      float64
	PurchaseFrequency float64
}

// BuildProfile derives a profile from the visitor's interactions and the
// products they touched. Interactions whose product is unknown are skipped.
func BuildProfile(interactions []domain.Interaction, products map[uint64]domain.Product, now time.Time) VisitorProfile {
	profile := VisitorProfile{
		CategoryAffinity: make(map[string]float64),
		BrandAffinity:    make(map[string]float64),
	}

	var (
		priceSum      float64
		daysSum       float64
		purchaseCount int
		counted       int
		earliest      time.Time
	)
	categoryCounts := make(map[string]int)
	brandCounts := make(map[string]int)

	for _, interaction := range interactions {
		product, ok := products[interaction.ProductID]
		if !ok {
			continue
		}
		counted++
		priceSum += product.Price
		categoryCounts[product.Category]++
		brandCounts[product.Brand]++
		daysSum += now.Sub(interaction.Timestamp).Hours() / 24

		if interaction.Kind == domain.InteractionPurchase {
			purchaseCount++
		}
		if earliest.IsZero() || interaction.Timestamp.Before(earliest) {
			earliest = interaction.Timestamp
		}
	}

	if counted == 0 {
		return profile
	}

	profile.AvgPrice = priceSum / float64(counted)
	profile.AvgDaysSince = daysSum / float64(counted)
	for category, count := range categoryCounts {
		profile.CategoryAffinity[category] = float64(count) / float64(counted)
	}
	for brand, count := range brandCounts {
		profile.BrandAffinity[brand] = float64(count) / float64(counted)
	}

	activeDays := now.Sub(earliest).Hours() / 24
	if activeDays < 1 {
		activeDays = 1
	}
	profile.PurchaseFrequency = float64(purchaseCount) / activeDays

	return profile
}

// FeatureVector encodes one (visitor, product) pair for scoring.
func FeatureVector(profile VisitorProfile, product domain.Product) []float64 {
	v := make([]float64, 0, featureDim)

	avgPrice := profile.AvgPrice
	if avgPrice < 1 {
		avgPrice = 1
	}

	priceDiff := product.Price - avgPrice
	if priceDiff < 0 {
		priceDiff = -priceDiff
	}
	v = append(v, priceDiff/avgPrice)
	v = append(v, product.Price/avgPrice)
	v = append(v, profile.CategoryAffinity[product.Category])
	v = append(v, profile.BrandAffinity[product.Brand])
	v = append(v, 1.0/(1.0+profile.AvgDaysSince/30.0))
	v = append(v, profile.PurchaseFrequency)
	v = append(v, priceTier(product.Price)...)

	return v
}

func priceTier(price float64) []float64 {
	switch {
	case price < 50:
		return []float64{1, 0, 0}
	case price < 150:
		return []float64{0, 1, 0}
	default:
		return []float64{0, 0, 1}
	}
}
