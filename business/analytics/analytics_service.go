package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"shopRecs/domain"
	"shopRecs/pkg/cache"
	"shopRecs/pkg/logger"
	"shopRecs/pkg/metrics"
)

// ---- Repository interfaces ----

type OrdersRepository interface {
	SalesSince(ctx context.Context, since time.Time, category string, limit int) ([]domain.ProductSales, error)
}

type InteractionRepository interface {
	CountsSince(ctx context.Context, since time.Time) ([]domain.InteractionCount, error)
	CountsPerProductSince(ctx context.Context, since time.Time) ([]domain.ProductCount, error)
	PopularProducts(ctx context.Context, limit int) ([]domain.ProductCount, error)
}

type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

type RollupRepository interface {
	ReplaceBestSellers(ctx context.Context, window, category string, entries []domain.BestSellerEntry) error
	ReplaceTrending(ctx context.Context, category string, entries []domain.TrendingEntry) error
	BestSellers(ctx context.Context, window, category string, limit int) ([]domain.BestSellerEntry, error)
	Trending(ctx context.Context, category string, limit int) ([]domain.TrendingEntry, error)
}

// ---- Service ----

// AnalyticsService produces and serves the best-seller and trending
// rollups. A failed publish for one key leaves that key's previous rollup
// in place; readers never see a partial table.
type AnalyticsService struct {
	ordersRepo      OrdersRepository
	interactionRepo InteractionRepository
	productRepo     ProductRepository
	rollupRepo      RollupRepository
	cache           *cache.ResultCache
	cfg             Config
}

func NewAnalyticsService(
	ordersRepo OrdersRepository,
	interactionRepo InteractionRepository,
	productRepo ProductRepository,
	rollupRepo RollupRepository,
	resultCache *cache.ResultCache,
	cfg Config,
) *AnalyticsService {
	return &AnalyticsService{
		ordersRepo:      ordersRepo,
		interactionRepo: interactionRepo,
		productRepo:     productRepo,
		rollupRepo:      rollupRepo,
		cache:           resultCache,
		cfg:             cfg,
	}
}

func windowStart(now time.Time, window string) time.Time {
	switch window {
	case domain.Window7d:
		return now.AddDate(0, 0, -7)
	case domain.Window30d:
		return now.AddDate(0, 0, -30)
	case domain.Window90d:
		return now.AddDate(0, 0, -90)
	default: // all
		return time.Time{}
	}
}

// RunRollup recomputes best sellers for the given windows and trending for
// the configured velocity window. Idempotent and safe to invoke repeatedly;
// each key is replaced atomically, so the later of two concurrent runs wins.
func (s *AnalyticsService) RunRollup(ctx context.Context, windows []string) error {
	if len(windows) == 0 {
		windows = []string{domain.Window7d, domain.Window30d, domain.Window90d, domain.WindowAll}
	}

	var errs []error

	start := time.Now()
	for _, window := range windows {
		if !domain.ValidWindow(window) {
			errs = append(errs, fmt.Errorf("unknown rollup window %q", window))
			continue
		}
		if err := s.rollupBestSellers(ctx, window); err != nil {
			metrics.RollupErrors.WithLabelValues("best_sellers").Inc()
			errs = append(errs, err)
		}
	}
	metrics.RollupDuration.WithLabelValues("best_sellers").Observe(time.Since(start).Seconds())

	start = time.Now()
	if err := s.rollupTrending(ctx); err != nil {
		metrics.RollupErrors.WithLabelValues("trending").Inc()
		errs = append(errs, err)
	}
	metrics.RollupDuration.WithLabelValues("trending").Observe(time.Since(start).Seconds())

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("analytics rollup complete", "windows", windows)
	return nil
}

func (s *AnalyticsService) rollupBestSellers(ctx context.Context, window string) error {
	now := time.Now()
	since := windowStart(now, window)

	sales, err := s.ordersRepo.SalesSince(ctx, since, "", s.cfg.TopNOverall)
	if err != nil {
		return fmt.Errorf("best-seller rollup (%s): %w", window, err)
	}

	if err := s.rollupRepo.ReplaceBestSellers(ctx, window, "", salesToEntries(sales, window, "", now)); err != nil {
		return err
	}

	categories, err := s.productRepo.DistinctCategories(ctx)
	if err != nil {
		return fmt.Errorf("best-seller rollup (%s): %w", window, err)
	}

	for _, category := range categories {
		categorySales, err := s.ordersRepo.SalesSince(ctx, since, category, s.cfg.TopNPerCategory)
		if err != nil {
			return fmt.Errorf("best-seller rollup (%s, %s): %w", window, category, err)
		}
		if err := s.rollupRepo.ReplaceBestSellers(ctx, window, category, salesToEntries(categorySales, window, category, now)); err != nil {
			return err
		}
	}

	return nil
}

func salesToEntries(sales []domain.ProductSales, window, category string, now time.Time) []domain.BestSellerEntry {
	entries := make([]domain.BestSellerEntry, 0, len(sales))
	for i, row := range sales {
		entries = append(entries, domain.BestSellerEntry{
			ProductID:      row.ProductID,
			Category:       category,
			TimeWindow:     window,
			SalesCount:     row.SalesCount,
			Revenue:        row.Revenue,
			Rank:           i + 1,
			LastCalculated: now,
		})
	}

	return entries
}

type trendingScore struct {
	productID        uint64
	score            float64
	viewVelocity     float64
	cartVelocity     float64
	purchaseVelocity float64
}

func (s *AnalyticsService) rollupTrending(ctx context.Context) error {
	now := time.Now()

	counts, err := s.interactionRepo.CountsSince(ctx, now.Add(-s.cfg.TrendingWindow))
	if err != nil {
		return fmt.Errorf("trending rollup: %w", err)
	}

	recent, err := s.interactionRepo.CountsPerProductSince(ctx, now.Add(-s.cfg.RecentBoostWindow))
	if err != nil {
		return fmt.Errorf("trending rollup: %w", err)
	}
	recentByProduct := make(map[uint64]int, len(recent))
	for _, row := range recent {
		recentByProduct[row.ProductID] = row.Count
	}

	hours := s.cfg.TrendingWindow.Hours()
	if hours <= 0 {
		hours = 24
	}

	type tally struct{ views, clicks, carts, purchases int }
	tallies := make(map[uint64]*tally)
	for _, row := range counts {
		t, ok := tallies[row.ProductID]
		if !ok {
			t = &tally{}
			tallies[row.ProductID] = t
		}
		switch row.Kind {
		case domain.InteractionView:
			t.views += row.Count
		case domain.InteractionClick:
			t.clicks += row.Count
		case domain.InteractionAddToCart:
			t.carts += row.Count
		case domain.InteractionPurchase:
			t.purchases += row.Count
		}
	}

	scores := make([]trendingScore, 0, len(tallies))
	for productID, t := range tallies {
		ts := trendingScore{
			productID:        productID,
			viewVelocity:     float64(t.views) / hours,
			cartVelocity:     float64(t.carts) / hours,
			purchaseVelocity: float64(t.purchases) / hours,
		}

		clickVelocity := float64(t.clicks) / hours
		ts.score = ts.viewVelocity*s.cfg.ViewWeight +
			clickVelocity*s.cfg.ClickWeight +
			ts.cartVelocity*s.cfg.CartWeight +
			ts.purchaseVelocity*s.cfg.PurchaseWeight

		// burst boost with diminishing returns
		if recentCount := recentByProduct[productID]; recentCount > 0 {
			ts.score *= 1.0 + math.Log(1+float64(recentCount))*s.cfg.RecencyBoostFactor
		}

		scores = append(scores, ts)
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if err := s.rollupRepo.ReplaceTrending(ctx, "", trendingToEntries(topTrending(scores, s.cfg.TopNOverall), "", now)); err != nil {
		return err
	}

	categories, err := s.productRepo.DistinctCategories(ctx)
	if err != nil {
		return fmt.Errorf("trending rollup: %w", err)
	}

	productIDs := make([]uint64, 0, len(scores))
	for _, ts := range scores {
		productIDs = append(productIDs, ts.productID)
	}
	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("trending rollup: %w", err)
	}
	categoryByProduct := make(map[uint64]string, len(products))
	for _, p := range products {
		categoryByProduct[p.ID] = p.Category
	}

	for _, category := range categories {
		var categoryScores []trendingScore
		for _, ts := range scores {
			if categoryByProduct[ts.productID] == category {
				categoryScores = append(categoryScores, ts)
			}
		}
		if err := s.rollupRepo.ReplaceTrending(ctx, category, trendingToEntries(topTrending(categoryScores, s.cfg.TopNPerCategory), category, now)); err != nil {
			return err
		}
	}

	return nil
}

func topTrending(scores []trendingScore, n int) []trendingScore {
	if len(scores) > n {
		return scores[:n]
	}
	return scores
}

func trendingToEntries(scores []trendingScore, category string, now time.Time) []domain.TrendingEntry {
	entries := make([]domain.TrendingEntry, 0, len(scores))
	for i, ts := range scores {
		entries = append(entries, domain.TrendingEntry{
			ProductID:        ts.productID,
			Category:         category,
			TrendingScore:    ts.score,
			ViewVelocity:     ts.viewVelocity,
			CartVelocity:     ts.cartVelocity,
			PurchaseVelocity: ts.purchaseVelocity,
			Rank:             i + 1,
			LastCalculated:   now,
		})
	}

	return entries
}

// ---- Read accessors ----

// BestSellers reads the published rollup for (window, category), drops
// out-of-stock products and truncates to limit. Memoized in the result
// cache. An empty rollup (never ran, or no qualifying orders) yields an
// empty list.
func (s *AnalyticsService) BestSellers(ctx context.Context, window, category string, limit int) ([]uint64, error) {
	if limit <= 0 || !domain.ValidWindow(window) {
		return []uint64{}, nil
	}

	key := s.cache.Key("best_sellers", map[string]any{
		"time_window": window,
		"category":    category,
		"limit":       limit,
	})

	var cached []uint64
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	entries, err := s.rollupRepo.BestSellers(ctx, window, category, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}

	result, err := s.filterInStock(ctx, ids, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, result, s.cfg.BestSellersTTL)
	return result, nil
}

// Trending reads the published trending rollup for the category.
func (s *AnalyticsService) Trending(ctx context.Context, category string, limit int) ([]uint64, error) {
	if limit <= 0 {
		return []uint64{}, nil
	}

	key := s.cache.Key("trending", map[string]any{
		"category": category,
		"limit":    limit,
	})

	var cached []uint64
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	entries, err := s.rollupRepo.Trending(ctx, category, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}

	result, err := s.filterInStock(ctx, ids, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, result, s.cfg.TrendingTTL)
	return result, nil
}

// Popular ranks products by all-time interaction volume. Fallback when no
// rollup has ever been published.
func (s *AnalyticsService) Popular(ctx context.Context, limit int) ([]uint64, error) {
	if limit <= 0 {
		return []uint64{}, nil
	}

	counts, err := s.interactionRepo.PopularProducts(ctx, limit*2)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(counts))
	for _, row := range counts {
		ids = append(ids, row.ProductID)
	}

	return s.filterInStock(ctx, ids, limit)
}

func (s *AnalyticsService) filterInStock(ctx context.Context, ids []uint64, limit int) ([]uint64, error) {
	if len(ids) == 0 {
		return []uint64{}, nil
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	inStock := make(map[uint64]bool, len(products))
	for _, p := range products {
		inStock[p.ID] = p.InStock()
	}

	result := make([]uint64, 0, limit)
	for _, id := range ids {
		if !inStock[id] {
			continue
		}
		result = append(result, id)
		if len(result) == limit {
			break
		}
	}

	return result, nil
}
