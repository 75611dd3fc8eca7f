package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// Campaign is a supplier's time-boxed group-buying offer.
type Campaign struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID         uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null"`
	Title              string               `gorm:"column:title;not null"`
	Description        *string              `gorm:"column:description"`
	ProductDetails     *string              `gorm:"column:product_details"`
	Status             enums.CampaignStatus `gorm:"column:status;type:campaign_status;not null;default:'draft'"`
	TargetQuantity     int64                `gorm:"column:target_quantity;not null;default:0"`
	StartDate          time.Time            `gorm:"column:start_date;not null"`
	EndDate            time.Time            `gorm:"column:end_date;not null"`
	GracePeriodEndDate *time.Time           `gorm:"column:grace_period_end_date"`
	Brackets           []DiscountBracket    `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
