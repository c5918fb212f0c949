//go:build !integration

package recommender

import (
	"context"
	"math"
	"testing"
	"time"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
)

type fakeAnalytics struct {
	bestSellers []uint64
	trending    []uint64
	popular     []uint64
}

func (f *fakeAnalytics) BestSellers(_ context.Context, _, _ string, limit int) ([]uint64, error) {
	return truncate(f.bestSellers, limit), nil
}

func (f *fakeAnalytics) Trending(_ context.Context, _ string, limit int) ([]uint64, error) {
	return truncate(f.trending, limit), nil
}

func (f *fakeAnalytics) Popular(_ context.Context, limit int) ([]uint64, error) {
	return truncate(f.popular, limit), nil
}

func truncate(ids []uint64, limit int) []uint64 {
	if len(ids) > limit {
		return ids[:limit]
	}
	return ids
}

type fakePreference struct{ result []domain.ScoredProduct }

func (f *fakePreference) Recommend(_ context.Context, _ uint, _ []domain.Product, _ int) ([]domain.ScoredProduct, error) {
	return f.result, nil
}

type fakeNeighbors struct{ result []domain.ScoredProduct }

func (f *fakeNeighbors) Recommend(_ context.Context, _ domain.Actor, _ []domain.Product, _ int) ([]domain.ScoredProduct, error) {
	return f.result, nil
}

type fakeBasket struct{ result []domain.ScoredProduct }

func (f *fakeBasket) CartRecommendations(_ context.Context, _ []uint64, _ []domain.Product, _ int, _ bool) ([]domain.ScoredProduct, error) {
	return f.result, nil
}

func (f *fakeBasket) Complementary(_ context.Context, _ uint64, _ []domain.Product, _ int) ([]domain.ScoredProduct, error) {
	return f.result, nil
}

func (f *fakeBasket) AbandonedCartRecovery(_ context.Context, _ uint, _ []uint64, _ []domain.Product, _ int) ([]domain.ScoredProduct, error) {
	return f.result, nil
}

type fakeInteractionRepo struct {
	interactions []domain.Interaction
	activeUsers  []domain.UserActivity
}

func (f *fakeInteractionRepo) CountByActor(_ context.Context, _ domain.Actor) (int64, error) {
	return int64(len(f.interactions)), nil
}

func (f *fakeInteractionRepo) FindByActorSince(_ context.Context, _ domain.Actor, since time.Time) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for _, i := range f.interactions {
		if !i.Timestamp.Before(since) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeInteractionRepo) MostActiveUsers(_ context.Context, limit int) ([]domain.UserActivity, error) {
	if limit < len(f.activeUsers) {
		return f.activeUsers[:limit], nil
	}
	return f.activeUsers, nil
}

type fakeOrdersRepo struct {
	purchaseCount int64
	recent        []uint64
}

func (f *fakeOrdersRepo) CountByUser(_ context.Context, _ uint) (int64, error) {
	return f.purchaseCount, nil
}

func (f *fakeOrdersRepo) RecentPurchasedProductIDs(_ context.Context, _ uint, _ time.Time, limit int) ([]uint64, error) {
	return truncate(f.recent, limit), nil
}

type fakeProductRepo struct {
	products []domain.Product
}

func (f *fakeProductRepo) FindByID(_ context.Context, id uint64) (domain.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (f *fakeProductRepo) FindInStock(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if p.InStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, ids []uint64) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func catalog(n int) []domain.Product {
	products := make([]domain.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, domain.Product{
			ID:            uint64(i),
			Price:         float64(20 + i*10),
			Category:      []string{"electronics", "books", "garden"}[i%3],
			StockQuantity: 5,
		})
	}
	return products
}

type deps struct {
	analytics    *fakeAnalytics
	preference   *fakePreference
	neighbors    *fakeNeighbors
	basket       *fakeBasket
	interactions *fakeInteractionRepo
	orders       *fakeOrdersRepo
	products     *fakeProductRepo
}

func newService(d deps) *RecommenderService {
	if d.analytics == nil {
		d.analytics = &fakeAnalytics{}
	}
	if d.preference == nil {
		d.preference = &fakePreference{}
	}
	if d.neighbors == nil {
		d.neighbors = &fakeNeighbors{}
	}
	if d.basket == nil {
		d.basket = &fakeBasket{}
	}
	if d.interactions == nil {
		d.interactions = &fakeInteractionRepo{}
	}
	if d.orders == nil {
		d.orders = &fakeOrdersRepo{}
	}
	if d.products == nil {
		d.products = &fakeProductRepo{products: catalog(12)}
	}

	return NewRecommenderService(
		d.analytics, d.preference, d.neighbors, d.basket,
		d.interactions, d.orders, d.products,
		cache.New(cache.Options{DefaultTTL: time.Minute, MaxEntries: 100}),
		DefaultConfig(),
	)
}

func assertNoDuplicates(t *testing.T, result []domain.ScoredProduct) {
	t.Helper()
	seen := make(map[uint64]bool)
	for _, sp := range result {
		if seen[sp.ProductID] {
			t.Fatalf("duplicate product %d in result", sp.ProductID)
		}
		seen[sp.ProductID] = true
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		anonymous    bool
		interactions int64
		purchases    int64
		want         domain.Segment
	}{
		{true, 0, 0, domain.SegmentAnonymousCold},
		{true, 2, 0, domain.SegmentAnonymousCold},
		{true, 3, 0, domain.SegmentAnonymousWarm},
		{false, 4, 0, domain.SegmentNewIdentified},
		{false, 5, 0, domain.SegmentSparseIdentified},
		{false, 19, 5, domain.SegmentSparseIdentified},
		{false, 25, 1, domain.SegmentSparseIdentified},
		{false, 25, 2, domain.SegmentEstablished},
	}

	for _, tc := range cases {
		for run := 0; run < 3; run++ {
			got := Classify(cfg, tc.anonymous, tc.interactions, tc.purchases)
			if got != tc.want {
				t.Errorf("Classify(anon=%v, i=%d, p=%d) = %s, want %s",
					tc.anonymous, tc.interactions, tc.purchases, got, tc.want)
			}
		}
	}
}

// Scenario: brand-new visitor gets a full page from aggregates only.
func TestRecommendColdVisitorFillsLimitFromAggregates(t *testing.T) {
	svc := newService(deps{
		analytics: &fakeAnalytics{
			bestSellers: []uint64{1, 2, 3, 4, 5},
			trending:    []uint64{6, 7, 8, 9, 10},
		},
	})

	result, segment, err := svc.Recommend(context.Background(), domain.Actor{SessionID: "fresh"}, 10, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if segment != domain.SegmentAnonymousCold {
		t.Fatalf("expected anonymous_cold, got %s", segment)
	}
	if len(result) != 10 {
		t.Fatalf("expected exactly 10 items, got %d", len(result))
	}
	assertNoDuplicates(t, result)

	for _, sp := range result {
		for _, source := range sp.Sources {
			if source == domain.ComponentPreference || source == domain.ComponentNeighbors || source == domain.ComponentAssociation {
				t.Fatalf("personalized component %s leaked into cold output", source)
			}
		}
	}
}

func TestRecommendColdBackfillsFromCatalog(t *testing.T) {
	// rollups only know 2 products; the catalog must fill the rest
	svc := newService(deps{
		analytics: &fakeAnalytics{bestSellers: []uint64{1}, trending: []uint64{2}},
	})

	result, _, err := svc.Recommend(context.Background(), domain.Actor{SessionID: "fresh"}, 8, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result) != 8 {
		t.Fatalf("expected backfill to 8 items, got %d", len(result))
	}
	assertNoDuplicates(t, result)
}

// Scenario: 5 interactions, 0 purchases routes to the cold-start path and
// never returns anything the visitor already saw.
func TestRecommendSparseExcludesSeenItems(t *testing.T) {
	now := time.Now()
	var interactions []domain.Interaction
	for _, id := range []uint64{1, 2, 3, 4, 5} {
		interactions = append(interactions, domain.Interaction{
			UserID: 9, ProductID: id, Kind: domain.InteractionView,
			Timestamp: now.Add(-time.Hour),
		})
	}

	svc := newService(deps{
		interactions: &fakeInteractionRepo{interactions: interactions},
	})

	result, segment, err := svc.Recommend(context.Background(), domain.Actor{UserID: 9}, 5, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if segment != domain.SegmentSparseIdentified {
		t.Fatalf("expected sparse_identified, got %s", segment)
	}

	seen := map[uint64]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, sp := range result {
		if seen[sp.ProductID] {
			t.Fatalf("already-seen product %d returned by cold-start path", sp.ProductID)
		}
	}
	assertNoDuplicates(t, result)
	if len(result) > 5 {
		t.Fatalf("limit exceeded: %d", len(result))
	}
}

func TestRecommendEstablishedBlendsComponents(t *testing.T) {
	now := time.Now()
	var interactions []domain.Interaction
	for i := 0; i < 25; i++ {
		interactions = append(interactions, domain.Interaction{
			UserID: 9, ProductID: uint64(i%12 + 1), Kind: domain.InteractionView,
			Timestamp: now.Add(-time.Hour),
		})
	}

	svc := newService(deps{
		interactions: &fakeInteractionRepo{interactions: interactions},
		orders:       &fakeOrdersRepo{purchaseCount: 3, recent: []uint64{1}},
		preference: &fakePreference{result: []domain.ScoredProduct{
			{ProductID: 2, Score: 1.4}, {ProductID: 3, Score: 0.7},
		}},
		neighbors: &fakeNeighbors{result: []domain.ScoredProduct{
			{ProductID: 2, Score: 3.0}, {ProductID: 4, Score: 1.0},
		}},
		basket: &fakeBasket{result: []domain.ScoredProduct{
			{ProductID: 5, Score: 2.0},
		}},
		analytics: &fakeAnalytics{bestSellers: []uint64{6, 2}},
	})

	result, segment, err := svc.Recommend(context.Background(), domain.Actor{UserID: 9}, 4, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if segment != domain.SegmentEstablished {
		t.Fatalf("expected established, got %s", segment)
	}
	if len(result) == 0 || len(result) > 4 {
		t.Fatalf("unexpected result size %d", len(result))
	}
	assertNoDuplicates(t, result)

	// product 2 tops preference and neighbors and appears in best sellers
	if result[0].ProductID != 2 {
		t.Fatalf("expected product 2 to rank first, got %d", result[0].ProductID)
	}
	if len(result[0].Sources) < 3 {
		t.Fatalf("expected multi-component breakdown for product 2, got %v", result[0].Sources)
	}
}

func TestRecommendInvalidInputsReturnEmpty(t *testing.T) {
	svc := newService(deps{})

	result, _, err := svc.Recommend(context.Background(), domain.Actor{}, 10, nil)
	if err != nil || len(result) != 0 {
		t.Fatalf("invalid actor should yield empty list, got %v (%v)", result, err)
	}

	result, _, err = svc.Recommend(context.Background(), domain.Actor{UserID: 1}, 0, nil)
	if err != nil || len(result) != 0 {
		t.Fatalf("non-positive limit should yield empty list, got %v (%v)", result, err)
	}
}

func TestBlendWeightsOverrideRenormalizes(t *testing.T) {
	svc := newService(deps{})

	weights := svc.blendWeights(map[string]float64{
		domain.ComponentPreference: 3,
		domain.ComponentNeighbors:  1,
		"unknown_component":        5,
	})

	var total float64
	for _, w := range weights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("override weights should renormalize to 1, got %v", total)
	}
	if _, ok := weights["unknown_component"]; ok {
		t.Fatalf("unrecognized component survived the override filter")
	}
	if math.Abs(weights[domain.ComponentPreference]-0.75) > 1e-9 {
		t.Fatalf("expected preference weight 0.75, got %v", weights[domain.ComponentPreference])
	}
}

func TestSplitQuotaSumsToLimit(t *testing.T) {
	cases := []struct {
		limit   int
		weights []float64
	}{
		{10, []float64{0.5, 0.5}},
		{7, []float64{0.5, 0.5}},
		{9, []float64{0.3, 0.3, 0.2, 0.2}},
		{1, []float64{0.5, 0.5}},
	}

	for _, tc := range cases {
		quotas := splitQuota(tc.limit, tc.weights)
		sum := 0
		for _, q := range quotas {
			sum += q
		}
		if sum != tc.limit {
			t.Errorf("splitQuota(%d, %v) = %v, sums to %d", tc.limit, tc.weights, quotas, sum)
		}
	}
}

func TestDiversifyPrefersUnseenCategories(t *testing.T) {
	products := map[uint64]domain.Product{
		1: {ID: 1, Category: "a", Price: 30},
		2: {ID: 2, Category: "a", Price: 35},
		3: {ID: 3, Category: "b", Price: 200},
		4: {ID: 4, Category: "c", Price: 500},
	}
	scored := []domain.ScoredProduct{
		{ProductID: 1, Score: 1.0},
		{ProductID: 2, Score: 0.9},
		{ProductID: 3, Score: 0.8},
		{ProductID: 4, Score: 0.7},
	}

	out := diversify(scored, products, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	// 2 duplicates category a and band budget, so 3 and 4 jump ahead
	want := []uint64{1, 3, 4}
	for i, id := range want {
		if out[i].ProductID != id {
			t.Fatalf("position %d: got %d, want %d", i, out[i].ProductID, id)
		}
	}
}

func TestWidenBandsAddsNeighbors(t *testing.T) {
	widened := widenBands(map[string]bool{"mid": true})
	for _, band := range []string{"budget", "mid", "premium"} {
		if !widened[band] {
			t.Errorf("expected band %s after widening, got %v", band, widened)
		}
	}
	if widened["luxury"] {
		t.Errorf("luxury should not be adjacent to mid")
	}
}

func TestAlgorithmWeightsReportsSegment(t *testing.T) {
	svc := newService(deps{
		orders: &fakeOrdersRepo{purchaseCount: 5},
	})

	segment, weights, err := svc.AlgorithmWeights(context.Background(), domain.Actor{SessionID: "s"})
	if err != nil {
		t.Fatalf("AlgorithmWeights: %v", err)
	}
	if segment != domain.SegmentAnonymousCold {
		t.Fatalf("expected anonymous_cold, got %s", segment)
	}
	if weights[domain.ComponentBestSellers] != 0.5 || weights[domain.ComponentTrending] != 0.5 {
		t.Fatalf("unexpected cold weights %v", weights)
	}
}

func TestWarmupPrimesActiveVisitors(t *testing.T) {
	svc := newService(deps{
		analytics: &fakeAnalytics{bestSellers: []uint64{1, 2}, trending: []uint64{3}},
		interactions: &fakeInteractionRepo{
			activeUsers: []domain.UserActivity{{UserID: 7, Count: 40}},
		},
	})

	if err := svc.Warmup(context.Background(), 20); err != nil {
		t.Fatalf("Warmup: %v", err)
	}

	var cached []domain.ScoredProduct
	key := svc.recommendationKey(domain.Actor{UserID: 7}, 10)
	if !svc.cache.Get(context.Background(), key, &cached) {
		t.Fatalf("expected recommendations for the active visitor to be cached")
	}
	if len(cached) == 0 {
		t.Fatalf("cached warmup result is empty")
	}
}

func TestRecommendColdLabelsPopularBackfill(t *testing.T) {
	svc := newService(deps{
		analytics: &fakeAnalytics{
			bestSellers: []uint64{1},
			popular:     []uint64{1, 2, 3},
		},
	})

	result, _, err := svc.Recommend(context.Background(), domain.Actor{SessionID: "fresh"}, 3, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}

	for _, sp := range result {
		if sp.ProductID == 1 {
			continue // came straight from the best-seller rollup
		}
		if len(sp.Sources) != 1 || sp.Sources[0] != domain.ComponentPopular {
			t.Fatalf("popularity backfill mislabeled for product %d: %v", sp.ProductID, sp.Sources)
		}
	}
}

func TestDiversifyBandsUseDiscountedPrice(t *testing.T) {
	scored := []domain.ScoredProduct{
		{ProductID: 1, Score: 10},
		{ProductID: 2, Score: 9},
		{ProductID: 3, Score: 8},
	}
	// product 2 lists at 200 but sells for 30 after discount, landing it
	// in the already-covered budget band
	byID := map[uint64]domain.Product{
		1: {ID: 1, Category: "a", Price: 40, StockQuantity: 5},
		2: {ID: 2, Category: "a", Price: 200, DiscountPercentage: 85, StockQuantity: 5},
		3: {ID: 3, Category: "b", Price: 45, StockQuantity: 5},
	}

	out := diversify(scored, byID, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].ProductID != 1 || out[1].ProductID != 3 {
		t.Fatalf("expected [1 3], got %v", out)
	}
}

func TestRecommendSparsePrefersSharedTags(t *testing.T) {
	now := time.Now()
	var interactions []domain.Interaction
	for i := 0; i < 6; i++ {
		interactions = append(interactions, domain.Interaction{
			UserID: 9, ProductID: 1, Kind: domain.InteractionView,
			Timestamp: now.Add(-time.Hour),
		})
	}

	products := []domain.Product{
		{ID: 1, Category: "audio", Tags: "wireless,audio", Price: 100, StockQuantity: 5},
		{ID: 2, Category: "audio", Tags: "wireless,portable", Price: 100, StockQuantity: 5},
		{ID: 3, Category: "audio", Price: 100, StockQuantity: 5},
	}

	svc := newService(deps{
		interactions: &fakeInteractionRepo{interactions: interactions},
		products:     &fakeProductRepo{products: products},
	})

	result, segment, err := svc.Recommend(context.Background(), domain.Actor{UserID: 9}, 2, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if segment != domain.SegmentSparseIdentified {
		t.Fatalf("expected sparse_identified, got %s", segment)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result))
	}
	// same category and price; the shared "wireless" tag breaks the tie
	if result[0].ProductID != 2 || result[1].ProductID != 3 {
		t.Fatalf("expected tag overlap to rank product 2 first, got %v", result)
	}
}

func TestComplementaryUnknownProductReturnsEmpty(t *testing.T) {
	svc := newService(deps{
		basket: &fakeBasket{result: []domain.ScoredProduct{{ProductID: 2, Score: 1}}},
	})

	scored, err := svc.Complementary(context.Background(), 99, 5)
	if err != nil {
		t.Fatalf("Complementary: %v", err)
	}
	if len(scored) != 0 {
		t.Fatalf("unknown anchor should yield an empty list, got %v", scored)
	}

	scored, err = svc.Complementary(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("Complementary: %v", err)
	}
	if len(scored) != 1 || scored[0].ProductID != 2 {
		t.Fatalf("known anchor should reach the association engine, got %v", scored)
	}
}
