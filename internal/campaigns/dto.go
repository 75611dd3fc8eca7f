package campaigns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// CreateInput carries the fields a supplier sets when drafting a campaign.
type CreateInput struct {
	SupplierID     uuid.UUID
	Title          string
	Description    *string
	ProductDetails *string
	TargetQuantity int64
	StartDate      time.Time
	EndDate        time.Time
	Brackets       []BracketInput
}

// UpdateInput carries the mutable draft fields. Nil pointers leave the
// column untouched.
type UpdateInput struct {
	CampaignID     uuid.UUID
	SupplierID     uuid.UUID
	Title          *string
	Description    *string
	ProductDetails *string
	TargetQuantity *int64
	StartDate      *time.Time
	EndDate        *time.Time
}

// BracketInput is one quantity range of the tiered price ladder.
type BracketInput struct {
	MinQuantity  int64
	MaxQuantity  *int64
	UnitPrice    decimal.Decimal
	BracketOrder int
}

// ActorInput identifies who is driving a lifecycle change.
type ActorInput struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   string
}

// BracketStatus is one row of the campaign summary's price ladder.
type BracketStatus struct {
	BracketID   uuid.UUID             `json:"bracket_id"`
	MinQuantity int64                 `json:"min_quantity"`
	MaxQuantity *int64                `json:"max_quantity,omitempty"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	Standing    enums.BracketStanding `json:"standing"`
}

// Summary is the single source of truth for a campaign's progress. Every
// surface (API, events, scheduler decisions) reads these numbers rather than
// recomputing them.
type Summary struct {
	CampaignID       uuid.UUID            `json:"campaign_id"`
	Status           enums.CampaignStatus `json:"status"`
	TotalPledges     int64                `json:"total_pledges"`
	TotalQuantity    int64                `json:"total_quantity"`
	CurrentUnitPrice *decimal.Decimal     `json:"current_unit_price,omitempty"`
	CurrentBracketID *uuid.UUID           `json:"current_bracket_id,omitempty"`
	NextBracketID    *uuid.UUID           `json:"next_bracket_id,omitempty"`
	UnitsToNextTier  *int64               `json:"units_to_next_tier,omitempty"`
	PercentToNext    float64              `json:"percent_to_next"`
	Brackets         []BracketStatus      `json:"brackets"`
}
