package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// Pledge is a buyer organization's quantity commitment on a campaign.
// CommittedAt is stamped exactly once, when the pledge is finalized during
// the campaign's grace period.
type Pledge struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID  uuid.UUID          `gorm:"column:campaign_id;type:uuid;not null"`
	BuyerOrgID  uuid.UUID          `gorm:"column:buyer_org_id;type:uuid;not null"`
	Quantity    int64              `gorm:"column:quantity;not null"`
	Status      enums.PledgeStatus `gorm:"column:status;type:pledge_status;not null;default:'pending'"`
	CommittedAt *time.Time         `gorm:"column:committed_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
