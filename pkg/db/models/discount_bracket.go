package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountBracket captures one quantity range of a campaign's tiered pricing.
// MaxQuantity is nil for the open-ended top bracket. UnitPrice stays an exact
// decimal end to end; it is never handled as a float.
type DiscountBracket struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID   uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null"`
	MinQuantity  int64           `gorm:"column:min_quantity;not null"`
	MaxQuantity  *int64          `gorm:"column:max_quantity"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	BracketOrder int             `gorm:"column:bracket_order;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Contains reports whether the quantity falls inside the bracket's range,
// inclusive on both ends (nil max means unbounded above).
func (b DiscountBracket) Contains(quantity int64) bool {
	if quantity < b.MinQuantity {
		return false
	}
	return b.MaxQuantity == nil || quantity <= *b.MaxQuantity
}
