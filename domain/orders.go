package domain

import "time"

// Order and OrderLine are created by checkout and read-only here. They are
// the ground truth for purchase features and association mining.
type Order struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Total     float64   `gorm:"column:total;type:numeric" json:"total"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderLine struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	OrderID   uint64  `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID uint64  `gorm:"column:product_id;not null;index" json:"product_id"`
	Quantity  int     `gorm:"column:quantity;default:1" json:"quantity"`
	UnitPrice float64 `gorm:"column:unit_price;type:numeric" json:"unit_price"`
}

func (OrderLine) TableName() string {
	return "order_lines"
}
