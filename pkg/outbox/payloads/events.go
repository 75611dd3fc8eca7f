package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// CampaignPublishedEvent signals a draft campaign went live.
type CampaignPublishedEvent struct {
	CampaignID     uuid.UUID `json:"campaign_id"`
	SupplierID     uuid.UUID `json:"supplier_id"`
	TargetQuantity int64     `json:"target_quantity"`
	BracketCount   int       `json:"bracket_count"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

// CampaignStatusChangedEvent is emitted on every lifecycle transition after
// publish, including scheduler-driven ones.
type CampaignStatusChangedEvent struct {
	CampaignID uuid.UUID            `json:"campaign_id"`
	SupplierID uuid.UUID            `json:"supplier_id"`
	FromStatus enums.CampaignStatus `json:"from_status"`
	ToStatus   enums.CampaignStatus `json:"to_status"`
	ChangedAt  time.Time            `json:"changed_at"`
}

// CampaignTierAdvancedEvent fires when aggregate pledge volume pushes the
// campaign into a cheaper bracket.
type CampaignTierAdvancedEvent struct {
	CampaignID    uuid.UUID       `json:"campaign_id"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	BracketID     uuid.UUID       `json:"bracket_id"`
	MinQuantity   int64           `json:"min_quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalQuantity int64           `json:"total_quantity"`
	PrevBracketID *uuid.UUID      `json:"prev_bracket_id,omitempty"`
}

// PledgeCreatedEvent signals a buyer joined a campaign.
type PledgeCreatedEvent struct {
	PledgeID   uuid.UUID `json:"pledge_id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	BuyerOrgID uuid.UUID `json:"buyer_org_id"`
	Quantity   int64     `json:"quantity"`
}

// PledgeWithdrawnEvent signals a pledge no longer counts toward the campaign.
type PledgeWithdrawnEvent struct {
	PledgeID    uuid.UUID `json:"pledge_id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	BuyerOrgID  uuid.UUID `json:"buyer_org_id"`
	Quantity    int64     `json:"quantity"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
}

// PledgeCommittedEvent is the grace-period finalization of a pledge at the
// locked-in unit price.
type PledgeCommittedEvent struct {
	PledgeID    uuid.UUID       `json:"pledge_id"`
	CampaignID  uuid.UUID       `json:"campaign_id"`
	BuyerOrgID  uuid.UUID       `json:"buyer_org_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CommittedAt time.Time       `json:"committed_at"`
}
