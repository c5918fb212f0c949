package neighbors

import (
	"context"
	"math"
	"sort"

	"shopRecs/domain"
)

type InteractionRepository interface {
	CountsByActor(ctx context.Context, actor domain.Actor) ([]domain.InteractionCount, error)
	CountsByUser(ctx context.Context, userID uint) ([]domain.InteractionCount, error)
	UsersInteractingWith(ctx context.Context, productIDs []uint64, excludeUserID uint) ([]domain.ActorProduct, error)
}

// NeighborsService recommends what similar visitors liked. Each visitor
// becomes a sparse item vector of interaction weights; similarity is
// cosine over the items two visitors share.
type NeighborsService struct {
	interactionRepo InteractionRepository
	cfg             Config
}

func NewNeighborsService(interactionRepo InteractionRepository, cfg Config) *NeighborsService {
	return &NeighborsService{
		interactionRepo: interactionRepo,
		cfg:             cfg,
	}
}

type neighbor struct {
	userID     uint
	similarity float64
}

// Recommend ranks the candidates by how strongly the visitor's nearest
// neighbors engaged with them. Products the visitor already touched are
// never returned. Declines with an empty list on thin history.
func (s *NeighborsService) Recommend(ctx context.Context, actor domain.Actor, candidates []domain.Product, limit int) ([]domain.ScoredProduct, error) {
	if !actor.Valid() || limit <= 0 || len(candidates) == 0 {
		return []domain.ScoredProduct{}, nil
	}

	ownItems, err := s.itemVector(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(ownItems) < s.cfg.MinOwnItems {
		return []domain.ScoredProduct{}, nil
	}

	similar, err := s.findNeighbors(ctx, actor, ownItems)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return []domain.ScoredProduct{}, nil
	}

	candidateSet := make(map[uint64]bool, len(candidates))
	for _, c := range candidates {
		candidateSet[c.ID] = true
	}

	scores := make(map[uint64]float64)
	neighborCounts := make(map[uint64]int)
	for _, n := range similar {
		items, err := s.itemVector(ctx, domain.Actor{UserID: n.userID})
		if err != nil {
			return nil, err
		}
		for productID, weight := range items {
			if _, owned := ownItems[productID]; owned {
				continue
			}
			if !candidateSet[productID] {
				continue
			}
			scores[productID] += weight * n.similarity
			neighborCounts[productID]++
		}
	}

	// a product endorsed by many neighbors should not win on volume alone
	scored := make([]domain.ScoredProduct, 0, len(scores))
	for productID, total := range scores {
		scored = append(scored, domain.ScoredProduct{
			ProductID: productID,
			Score:     total / float64(neighborCounts[productID]),
			Sources:   []string{domain.ComponentNeighbors},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

// itemVector folds an actor's interaction tallies into weighted per-item
// engagement scores.
func (s *NeighborsService) itemVector(ctx context.Context, actor domain.Actor) (map[uint64]float64, error) {
	counts, err := s.interactionRepo.CountsByActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	vector := make(map[uint64]float64, len(counts))
	for _, row := range counts {
		vector[row.ProductID] += s.kindWeight(row.Kind) * float64(row.Count)
	}

	return vector, nil
}

func (s *NeighborsService) kindWeight(kind string) float64 {
	switch kind {
	case domain.InteractionView:
		return s.cfg.ViewWeight
	case domain.InteractionClick:
		return s.cfg.ClickWeight
	case domain.InteractionAddToCart:
		return s.cfg.CartWeight
	case domain.InteractionPurchase:
		return s.cfg.PurchaseWeight
	default:
		return s.cfg.ViewWeight
	}
}

func (s *NeighborsService) findNeighbors(ctx context.Context, actor domain.Actor, ownItems map[uint64]float64) ([]neighbor, error) {
	productIDs := make([]uint64, 0, len(ownItems))
	for id := range ownItems {
		productIDs = append(productIDs, id)
	}

	pairs, err := s.interactionRepo.UsersInteractingWith(ctx, productIDs, actor.UserID)
	if err != nil {
		return nil, err
	}

	commonByUser := make(map[uint]map[uint64]bool)
	for _, pair := range pairs {
		if commonByUser[pair.UserID] == nil {
			commonByUser[pair.UserID] = make(map[uint64]bool)
		}
		commonByUser[pair.UserID][pair.ProductID] = true
	}

	var neighbors []neighbor
	for userID, common := range commonByUser {
		if len(common) < s.cfg.MinCommonItems {
			continue
		}

		otherItems, err := s.interactionRepo.CountsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		otherVector := make(map[uint64]float64, len(otherItems))
		for _, row := range otherItems {
			otherVector[row.ProductID] += s.kindWeight(row.Kind) * float64(row.Count)
		}

		similarity := cosineOverCommon(ownItems, otherVector, common)
		if similarity >= s.cfg.SimilarityThreshold {
			neighbors = append(neighbors, neighbor{userID: userID, similarity: similarity})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	if len(neighbors) > s.cfg.MaxNeighbors {
		neighbors = neighbors[:s.cfg.MaxNeighbors]
	}

	return neighbors, nil
}

// cosineOverCommon computes cosine similarity restricted to the items both
// visitors touched. Result is in [0, 1] since weights are non-negative.
func cosineOverCommon(a, b map[uint64]float64, common map[uint64]bool) float64 {
	var numerator, sumSqA, sumSqB float64
	for item := range common {
		scoreA := a[item]
		scoreB := b[item]
		numerator += scoreA * scoreB
		sumSqA += scoreA * scoreA
		sumSqB += scoreB * scoreB
	}

	denominator := math.Sqrt(sumSqA) * math.Sqrt(sumSqB)
	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}
