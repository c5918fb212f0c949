package domain

// Query aggregates scanned out of the event store. These are read-model
// rows, not persisted tables.

// ProductSales is a grouped order-line sum used by the best-seller rollup.
type ProductSales struct {
	ProductID  uint64  `json:"product_id"`
	SalesCount int     `json:"sales_count"`
	Revenue    float64 `json:"revenue"`
}

// InteractionCount is a grouped interaction tally per product and kind.
type InteractionCount struct {
	ProductID uint64 `json:"product_id"`
	Kind      string `json:"kind"`
	Count     int    `json:"count"`
}

// ActorProduct is a distinct (user, product) pair, used when searching for
// neighbor candidates.
type ActorProduct struct {
	UserID    uint   `json:"user_id"`
	ProductID uint64 `json:"product_id"`
}

// ProductCount is a plain per-product tally.
type ProductCount struct {
	ProductID uint64 `json:"product_id"`
	Count     int    `json:"count"`
}

// UserActivity ranks identified visitors by interaction volume, used for
// cache warmup.
type UserActivity struct {
	UserID uint `json:"user_id"`
	Count  int  `json:"count"`
}
