package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InteractionView      = "view"
	InteractionClick     = "click"
	InteractionAddToCart = "add_to_cart"
	InteractionPurchase  = "purchase"
)

// Interaction is an append-only record owned by the event store. Exactly
// one of UserID / SessionID is set: identified visitors carry a user id,
// anonymous visitors a session id.
type Interaction struct {
	ID        uint64            `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"column:user_id;index" json:"user_id"`
	SessionID string            `gorm:"column:session_id;type:text;index" json:"session_id"`
	ProductID uint64            `gorm:"column:product_id;not null;index" json:"product_id"`
	Kind      string            `gorm:"column:kind;not null" json:"kind"`
	Timestamp time.Time         `gorm:"column:timestamp;index" json:"timestamp"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (Interaction) TableName() string {
	return "interactions"
}
