package postgres

import (
	"context"
	"fmt"

	"shopRecs/domain"

	"gorm.io/gorm"
)

// AnalyticsRepository owns the rollup tables. Every publish replaces the
// full row set for one (window, category) key inside a single transaction
// so concurrent readers see either the old or the new rollup, never a mix.
type AnalyticsRepository struct {
	DB *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{
		DB: db,
	}
}

func (r *AnalyticsRepository) ReplaceBestSellers(ctx context.Context, window, category string, entries []domain.BestSellerEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("time_window = ? AND category = ?", window, category).
			Delete(&domain.BestSellerEntry{}).Error; err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		return tx.Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace best sellers for (%s, %q): %w", window, category, err)
	}

	return nil
}

func (r *AnalyticsRepository) ReplaceTrending(ctx context.Context, category string, entries []domain.TrendingEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("category = ?", category).
			Delete(&domain.TrendingEntry{}).Error; err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		return tx.Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace trending for %q: %w", category, err)
	}

	return nil
}

func (r *AnalyticsRepository) BestSellers(ctx context.Context, window, category string, limit int) ([]domain.BestSellerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).
		Where("time_window = ? AND category = ?", window, category).
		Order("rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []domain.BestSellerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read best sellers: %w", err)
	}

	return entries, nil
}

func (r *AnalyticsRepository) Trending(ctx context.Context, category string, limit int) ([]domain.TrendingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).
		Where("category = ?", category).
		Order("rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []domain.TrendingEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read trending products: %w", err)
	}

	return entries, nil
}
