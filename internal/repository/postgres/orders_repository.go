package postgres

import (
	"context"
	"fmt"
	"time"

	"shopRecs/domain"

	"gorm.io/gorm"
)

type OrdersRepository struct {
	DB *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		DB: db,
	}
}

// FindSince loads completed orders with their lines, newest first. A zero
// cutoff loads the full history.
func (r *OrdersRepository) FindSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).Preload("Lines").Order("created_at DESC")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var orders []domain.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	return orders, nil
}

func (r *OrdersRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}

// PurchasedProductIDs lists the distinct products a visitor has bought,
// most recent order first.
func (r *OrdersRepository) PurchasedProductIDs(ctx context.Context, userID uint) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Select("DISTINCT order_lines.product_id").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.user_id = ?", userID).
		Pluck("order_lines.product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchased products: %w", err)
	}

	return ids, nil
}

// RecentPurchasedProductIDs limits the purchase history to a cutoff; used
// to pick association anchors.
func (r *OrdersRepository) RecentPurchasedProductIDs(ctx context.Context, userID uint, since time.Time, limit int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Select("DISTINCT order_lines.product_id").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.user_id = ? AND orders.created_at >= ?", userID, since).
		Limit(limit).
		Pluck("order_lines.product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent purchases: %w", err)
	}

	return ids, nil
}

// SalesSince sums order-line quantity and revenue per product within the
// window, ranked by quantity. An empty category means no category filter.
func (r *OrdersRepository) SalesSince(ctx context.Context, since time.Time, category string, limit int) ([]domain.ProductSales, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Select("order_lines.product_id, SUM(order_lines.quantity) AS sales_count, SUM(order_lines.quantity * order_lines.unit_price) AS revenue").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Group("order_lines.product_id").
		Order("sales_count DESC").
		Limit(limit)

	if !since.IsZero() {
		query = query.Where("orders.created_at >= ?", since)
	}
	if category != "" {
		query = query.
			Joins("JOIN products ON products.id = order_lines.product_id").
			Where("products.category = ?", category)
	}

	var sales []domain.ProductSales
	if err := query.Scan(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	return sales, nil
}
