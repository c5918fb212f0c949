//go:build !integration

package preference

import (
	"context"
	"testing"
	"time"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
)

type fakeInteractionRepo struct {
	interactions []domain.Interaction
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

type fakeOrdersRepo struct {
	purchased []uint64
}

func (f *fakeOrdersRepo) PurchasedProductIDs(_ context.Context, _ uint) ([]uint64, error) {
	return f.purchased, nil
}

type fakeProductRepo struct {
	products map[uint64]domain.Product
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, ids []uint64) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func product(id uint64, price float64, category, brand string) domain.Product {
	return domain.Product{
		ID:            id,
		Price:         price,
		Category:      category,
		Brand:         brand,
		StockQuantity: 10,
	}
}

// history: purchases of cheap electronics, views of expensive furniture
func trainedFixture() (*fakeInteractionRepo, *fakeOrdersRepo, *fakeProductRepo) {
	products := map[uint64]domain.Product{
		1: product(1, 30, "electronics", "acme"),
		2: product(2, 40, "electronics", "acme"),
		3: product(3, 35, "electronics", "acme"),
		4: product(4, 400, "furniture", "oakco"),
		5: product(5, 350, "furniture", "oakco"),
		6: product(6, 380, "furniture", "oakco"),
	}

	now := time.Now()
	var interactions []domain.Interaction
	for _, id := range []uint64{1, 2, 3} {
		interactions = append(interactions,
			domain.Interaction{UserID: 1, ProductID: id, Kind: domain.InteractionView, Timestamp: now.Add(-48 * time.Hour)},
			domain.Interaction{UserID: 1, ProductID: id, Kind: domain.InteractionPurchase, Timestamp: now.Add(-24 * time.Hour)},
		)
	}
	for _, id := range []uint64{4, 5, 6} {
		interactions = append(interactions,
			domain.Interaction{UserID: 1, ProductID: id, Kind: domain.InteractionView, Timestamp: now.Add(-24 * time.Hour)},
			domain.Interaction{UserID: 1, ProductID: id, Kind: domain.InteractionView, Timestamp: now.Add(-12 * time.Hour)},
		)
	}

	return &fakeInteractionRepo{interactions: interactions},
		&fakeOrdersRepo{purchased: []uint64{1, 2, 3}},
		&fakeProductRepo{products: products}
}

func newTestService(i *fakeInteractionRepo, o *fakeOrdersRepo, p *fakeProductRepo) *PreferenceService {
	return NewPreferenceService(i, o, p,
		cache.New(cache.Options{DefaultTTL: time.Minute, MaxEntries: 100}),
		DefaultConfig())
}

func TestRecommendPrefersProductsLikePastPurchases(t *testing.T) {
	svc := newTestService(trainedFixture())

	candidates := []domain.Product{
		product(10, 32, "electronics", "acme"),
		product(11, 390, "furniture", "oakco"),
	}

	scored, err := svc.Recommend(context.Background(), 1, candidates, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(scored))
	}
	if scored[0].ProductID != 10 {
		t.Errorf("expected cheap electronics first, got product %d", scored[0].ProductID)
	}
	if scored[0].Score <= scored[1].Score {
		t.Errorf("expected a positive margin between candidates: %v vs %v", scored[0].Score, scored[1].Score)
	}
}

func TestRecommendDeclinesWithThinHistory(t *testing.T) {
	now := time.Now()
	interactions := &fakeInteractionRepo{interactions: []domain.Interaction{
		{UserID: 1, ProductID: 1, Kind: domain.InteractionView, Timestamp: now},
		{UserID: 1, ProductID: 2, Kind: domain.InteractionView, Timestamp: now},
	}}
	svc := newTestService(interactions, &fakeOrdersRepo{}, &fakeProductRepo{})

	scored, err := svc.Recommend(context.Background(), 1, []domain.Product{product(10, 20, "a", "b")}, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(scored) != 0 {
		t.Fatalf("expected decline with thin history, got %d results", len(scored))
	}
}

func TestRecommendDeclinesForAnonymous(t *testing.T) {
	svc := newTestService(trainedFixture())

	scored, err := svc.Recommend(context.Background(), 0, []domain.Product{product(10, 20, "a", "b")}, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(scored) != 0 {
		t.Fatalf("expected empty result for anonymous visitor, got %d", len(scored))
	}
}

func TestRecommendDeclinesWithoutNegatives(t *testing.T) {
	// every interacted product was purchased, so there is no negative class
	products := map[uint64]domain.Product{
		1: product(1, 30, "electronics", "acme"),
		2: product(2, 40, "electronics", "acme"),
		3: product(3, 35, "electronics", "acme"),
	}
	now := time.Now()
	var interactions []domain.Interaction
	for _, id := range []uint64{1, 2, 3} {
		for k := 0; k < 4; k++ {
			interactions = append(interactions, domain.Interaction{
				UserID: 1, ProductID: id, Kind: domain.InteractionPurchase,
				Timestamp: now.Add(-time.Duration(k+1) * time.Hour),
			})
		}
	}

	svc := newTestService(
		&fakeInteractionRepo{interactions: interactions},
		&fakeOrdersRepo{purchased: []uint64{1, 2, 3}},
		&fakeProductRepo{products: products},
	)

	scored, err := svc.Recommend(context.Background(), 1, []domain.Product{product(10, 20, "a", "b")}, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(scored) != 0 {
		t.Fatalf("expected decline with a single label class, got %d results", len(scored))
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	samples := [][]float64{
		{0.1, 1.0, 0.5, 0.5, 0.9, 0.1, 1, 0, 0},
		{0.2, 1.1, 0.5, 0.4, 0.9, 0.1, 1, 0, 0},
		{2.0, 8.0, 0.0, 0.0, 0.9, 0.1, 0, 0, 1},
		{2.2, 9.0, 0.0, 0.0, 0.9, 0.1, 0, 0, 1},
	}
	labels := []int{1, 1, 0, 0}

	m1, err := Train(samples, labels, DefaultConfig())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	m2, err := Train(samples, labels, DefaultConfig())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	for j := range m1.Weights {
		if m1.Weights[j] != m2.Weights[j] {
			t.Fatalf("weight %d differs between identical runs: %v vs %v", j, m1.Weights[j], m2.Weights[j])
		}
	}
	if m1.Bias != m2.Bias {
		t.Fatalf("bias differs between identical runs")
	}

	// the margin should separate the classes
	if m1.Score(samples[0]) <= m1.Score(samples[2]) {
		t.Fatalf("positive sample should score above negative sample")
	}
}

func TestBuildProfileAffinitiesSumToOne(t *testing.T) {
	now := time.Now()
	products := map[uint64]domain.Product{
		1: product(1, 10, "a", "x"),
		2: product(2, 20, "b", "y"),
	}
	interactions := []domain.Interaction{
		{ProductID: 1, Kind: domain.InteractionView, Timestamp: now.Add(-time.Hour)},
		{ProductID: 1, Kind: domain.InteractionClick, Timestamp: now.Add(-time.Hour)},
		{ProductID: 2, Kind: domain.InteractionView, Timestamp: now.Add(-time.Hour)},
	}

	profile := BuildProfile(interactions, products, now)

	var total float64
	for _, share := range profile.CategoryAffinity {
		total += share
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("category affinities should sum to 1, got %v", total)
	}
	if profile.CategoryAffinity["a"] <= profile.CategoryAffinity["b"] {
		t.Fatalf("category a should dominate: %v", profile.CategoryAffinity)
	}
}
