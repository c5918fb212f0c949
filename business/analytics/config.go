package analytics

import "time"

type Config struct {
	// ranking depth of each published rollup
	TopNOverall     int
	TopNPerCategory int

	// trending velocity window and the short window for the burst boost
	TrendingWindow    time.Duration
	RecentBoostWindow time.Duration

	// interaction-kind weights applied to hourly velocity
	ViewWeight     float64
	ClickWeight    float64
	CartWeight     float64
	PurchaseWeight float64

	// multiplier on ln(1+recent) in the burst boost
	RecencyBoostFactor float64

	// cache TTLs for the read accessors
	BestSellersTTL time.Duration
	TrendingTTL    time.Duration
}

const (
	defaultTopNOverall        = 50
	defaultTopNPerCategory    = 20
	defaultViewWeight         = 1.0
	defaultClickWeight        = 2.0
	defaultCartWeight         = 5.0
	defaultPurchaseWeight     = 10.0
	defaultRecencyBoostFactor = 0.1
)

func DefaultConfig() Config {
	return Config{
		TopNOverall:        defaultTopNOverall,
		TopNPerCategory:    defaultTopNPerCategory,
		TrendingWindow:     24 * time.Hour,
		RecentBoostWindow:  6 * time.Hour,
		ViewWeight:         defaultViewWeight,
		ClickWeight:        defaultClickWeight,
		CartWeight:         defaultCartWeight,
		PurchaseWeight:     defaultPurchaseWeight,
		RecencyBoostFactor: defaultRecencyBoostFactor,
		BestSellersTTL:     30 * time.Minute,
		TrendingTTL:        15 * time.Minute,
	}
}
