package preference

import "time"

type Config struct {
	// interaction history considered when profiling and training
	HistoryWindow time.Duration

	// evidence floors below which the scorer declines to run
	MinInteractions         int
	MinTrainingInteractions int
	MinPurchasedProducts    int

	// hinge-loss SGD hyperparameters
	Epochs         int
	LearningRate   float64
	Regularization float64

	// how long a trained per-visitor model stays cached
	ModelTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		HistoryWindow:           90 * 24 * time.Hour,
		MinInteractions:         5,
		MinTrainingInteractions: 10,
		MinPurchasedProducts:    3,
		Epochs:                  200,
		LearningRate:            0.01,
		Regularization:          0.001,
		ModelTTL:                time.Hour,
	}
}
