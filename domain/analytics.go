package domain

import "time"

// Rollup windows recognized by the analytics engine.
const (
	Window7d  = "7d"
	Window30d = "30d"
	Window90d = "90d"
	WindowAll = "all"
)

func ValidWindow(window string) bool {
	switch window {
	case Window7d, Window30d, Window90d, WindowAll:
		return true
	}
	return false
}

// BestSellerEntry is a materialized rollup row. The set of rows for a
// (time_window, category) key is fully replaced on every rollup run; an
// empty category means the overall ranking.
type BestSellerEntry struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	ProductID      uint64    `gorm:"column:product_id;not null;uniqueIndex:uq_bestseller_key" json:"product_id"`
	Category       string    `gorm:"column:category;uniqueIndex:uq_bestseller_key;index:idx_bestseller_lookup" json:"category"`
	TimeWindow     string    `gorm:"column:time_window;not null;uniqueIndex:uq_bestseller_key;index:idx_bestseller_lookup" json:"time_window"`
	SalesCount     int       `gorm:"column:sales_count;default:0" json:"sales_count"`
	Revenue        float64   `gorm:"column:revenue;type:numeric;default:0" json:"revenue"`
	Rank           int       `gorm:"column:rank;index:idx_bestseller_lookup" json:"rank"`
	LastCalculated time.Time `gorm:"column:last_calculated" json:"last_calculated"`
}

func (BestSellerEntry) TableName() string {
	return "best_sellers"
}

// TrendingEntry is the velocity-ranked counterpart of BestSellerEntry,
// keyed by category only.
type TrendingEntry struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	ProductID        uint64    `gorm:"column:product_id;not null;uniqueIndex:uq_trending_key" json:"product_id"`
	Category         string    `gorm:"column:category;uniqueIndex:uq_trending_key;index:idx_trending_lookup" json:"category"`
	TrendingScore    float64   `gorm:"column:trending_score;type:numeric;default:0" json:"trending_score"`
	ViewVelocity     float64   `gorm:"column:view_velocity;type:numeric;default:0" json:"view_velocity"`
	CartVelocity     float64   `gorm:"column:cart_velocity;type:numeric;default:0" json:"cart_velocity"`
	PurchaseVelocity float64   `gorm:"column:purchase_velocity;type:numeric;default:0" json:"purchase_velocity"`
	Rank             int       `gorm:"column:rank;index:idx_trending_lookup" json:"rank"`
	LastCalculated   time.Time `gorm:"column:last_calculated" json:"last_calculated"`
}

func (TrendingEntry) TableName() string {
	return "trending_products"
}
