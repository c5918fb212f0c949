package neighbors

type Config struct {
	// floors before the filter will run or accept a neighbor
	MinOwnItems    int
	MinCommonItems int

	// cosine similarity floor and the neighborhood size cap
	SimilarityThreshold float64
	MaxNeighbors        int

	// interaction-kind weights for the item vectors
	ViewWeight     float64
	ClickWeight    float64
	CartWeight     float64
	PurchaseWeight float64
}

func DefaultConfig() Config {
	return Config{
		MinOwnItems:         3,
		MinCommonItems:      2,
		SimilarityThreshold: 0.1,
		MaxNeighbors:        50,
		ViewWeight:          1.0,
		ClickWeight:         2.0,
		CartWeight:          3.0,
		PurchaseWeight:      5.0,
	}
}
