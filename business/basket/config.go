package basket

import "time"

type Config struct {
	// association-rule thresholds
	MinSupport    float64
	MinConfidence float64

	// probability floor in the lift denominator
	LiftProbabilityFloor float64

	// when > 0, co-occurrence counts decay by order age with this half-life
	DecayHalfLife time.Duration

	// score multiplier for items sitting in the abandoned cart
	AbandonedBoost float64

	// how much purchase history anchors the recovery score
	HistoryAnchors int
}

func DefaultConfig() Config {
	return Config{
		MinSupport:           2,
		MinConfidence:        0.1,
		LiftProbabilityFloor: 0.001,
		AbandonedBoost:       1.5,
		HistoryAnchors:       5,
	}
}
