package postgres

import (
	"context"
	"fmt"
	"time"

	"shopRecs/domain"

	"gorm.io/gorm"
)

type InteractionRepository struct {
	DB *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{
		DB: db,
	}
}

func (r *InteractionRepository) actorScope(actor domain.Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.Anonymous() {
			return db.Where("session_id = ?", actor.SessionID)
		}
		return db.Where("user_id = ?", actor.UserID)
	}
}

func (r *InteractionRepository) CountByActor(ctx context.Context, actor domain.Actor) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Scopes(r.actorScope(actor)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}

	return count, nil
}

func (r *InteractionRepository) FindByActorSince(ctx context.Context, actor domain.Actor, since time.Time) ([]domain.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var interactions []domain.Interaction
	err := r.DB.WithContext(ctx).
		Scopes(r.actorScope(actor)).
		Where("timestamp >= ?", since).
		Order("timestamp DESC").
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find interactions: %w", err)
	}

	return interactions, nil
}

// CountsByActor returns the actor's interaction tallies grouped by product
// and kind, the raw material for weighted item vectors.
func (r *InteractionRepository) CountsByActor(ctx context.Context, actor domain.Actor) ([]domain.InteractionCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.InteractionCount
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("product_id, kind, COUNT(*) AS count").
		Scopes(r.actorScope(actor)).
		Group("product_id, kind").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interactions: %w", err)
	}

	return counts, nil
}

// CountsByUser is CountsByActor for an identified neighbor candidate.
func (r *InteractionRepository) CountsByUser(ctx context.Context, userID uint) ([]domain.InteractionCount, error) {
	return r.CountsByActor(ctx, domain.Actor{UserID: userID})
}

// UsersInteractingWith returns distinct (user, product) pairs for other
// identified visitors who touched any of the given products.
func (r *InteractionRepository) UsersInteractingWith(ctx context.Context, productIDs []uint64, excludeUserID uint) ([]domain.ActorProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(productIDs) == 0 {
		return []domain.ActorProduct{}, nil
	}

	var pairs []domain.ActorProduct
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("DISTINCT user_id, product_id").
		Where("product_id IN ?", productIDs).
		Where("user_id <> 0 AND user_id <> ?", excludeUserID).
		Scan(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping users: %w", err)
	}

	return pairs, nil
}

// CountsSince aggregates all interactions (identified and anonymous) newer
// than the cutoff, grouped by product and kind. Feeds the trending rollup.
func (r *InteractionRepository) CountsSince(ctx context.Context, since time.Time) ([]domain.InteractionCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.InteractionCount
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("product_id, kind, COUNT(*) AS count").
		Where("timestamp >= ?", since).
		Group("product_id, kind").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate recent interactions: %w", err)
	}

	return counts, nil
}

// CountsPerProductSince tallies interactions per product regardless of
// kind; used for the trending recency boost.
func (r *InteractionRepository) CountsPerProductSince(ctx context.Context, since time.Time) ([]domain.ProductCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.ProductCount
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("product_id, COUNT(*) AS count").
		Where("timestamp >= ?", since).
		Group("product_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recent interactions: %w", err)
	}

	return counts, nil
}

// PopularProducts ranks products by all-time interaction count. Final
// fallback when no rollup has ever run.
func (r *InteractionRepository) PopularProducts(ctx context.Context, limit int) ([]domain.ProductCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.ProductCount
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("product_id, COUNT(*) AS count").
		Group("product_id").
		Order("count DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank popular products: %w", err)
	}

	return counts, nil
}

func (r *InteractionRepository) MostActiveUsers(ctx context.Context, limit int) ([]domain.UserActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var activity []domain.UserActivity
	err := r.DB.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id <> 0").
		Group("user_id").
		Order("count DESC").
		Limit(limit).
		Scan(&activity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank active users: %w", err)
	}

	return activity, nil
}
