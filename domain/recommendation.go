package domain

// Actor identifies the visitor a request is for. Identified visitors carry
// a user id; anonymous visitors only a session id.
type Actor struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (a Actor) Anonymous() bool {
	return a.UserID == 0
}

func (a Actor) Valid() bool {
	return a.UserID != 0 || a.SessionID != ""
}

// Segment is the visitor class that decides which recommendation
// components run and how they are weighted. Pure function of evidence
// volume; never stored.
type Segment string

const (
	SegmentAnonymousCold    Segment = "anonymous_cold"
	SegmentAnonymousWarm    Segment = "anonymous_warm"
	SegmentNewIdentified    Segment = "new_identified"
	SegmentSparseIdentified Segment = "sparse_identified"
	SegmentEstablished      Segment = "established"
)

// Component names reported in ScoredProduct.Sources and accepted as
// weight-override keys.
const (
	ComponentPreference  = "preference"
	ComponentNeighbors   = "neighbors"
	ComponentAssociation = "association"
	ComponentBestSellers = "best_sellers"
	ComponentTrending    = "trending"
	ComponentColdStart   = "cold_start"
	ComponentPopular     = "popular"
)

// ScoredProduct pairs a product with its transient score and the
// components that contributed it. Returned alongside ranked lists instead
// of mutating Product.
type ScoredProduct struct {
	ProductID uint64   `json:"product_id"`
	Score     float64  `json:"score"`
	Sources   []string `json:"sources,omitempty"`
}
