package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

// Product is read-only to the engine. Scores are never attached to it;
// see ScoredProduct.
type Product struct {
	ID                 uint64    `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"column:name;type:text" json:"name"`
	Price              float64   `gorm:"column:price;type:numeric" json:"price"`
	Category           string    `gorm:"column:category;type:text;index" json:"category"`
	Brand              string    `gorm:"column:brand;type:text" json:"brand"`
	Tags               string    `gorm:"column:tags;type:text" json:"tags"`
	StockQuantity      int       `gorm:"column:stock_quantity;default:0" json:"stock_quantity"`
	DiscountPercentage float64   `gorm:"column:discount_percentage;type:numeric;default:0" json:"discount_percentage"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// TagList splits the comma-joined tags column.
func (p Product) TagList() []string {
	if p.Tags == "" {
		return nil
	}

	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

func (p Product) DiscountedPrice() float64 {
	if p.DiscountPercentage > 0 {
		return p.Price * (1 - p.DiscountPercentage/100)
	}

	return p.Price
}
