package tiering

import (
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// AggregationPolicy decides whether a pledge status counts toward the
// campaign's totals. Which statuses to exclude is a caller decision, not
// something this engine guesses at.
type AggregationPolicy func(enums.PledgeStatus) bool

// ExcludeWithdrawn is the default policy: withdrawn pledges no longer count.
func ExcludeWithdrawn(status enums.PledgeStatus) bool {
	return status != enums.PledgeStatusWithdrawn
}

// CountAll includes every pledge regardless of status, for callers that
// pre-filter upstream.
func CountAll(enums.PledgeStatus) bool {
	return true
}

// PledgeSummary is the reduction of a campaign's pledges that feeds Resolve.
type PledgeSummary struct {
	TotalPledges  int64
	TotalQuantity int64
}

// AggregatePledges reduces a pledge list into the count and total quantity of
// pledges the policy admits. A nil policy defaults to ExcludeWithdrawn.
func AggregatePledges(pledges []models.Pledge, policy AggregationPolicy) PledgeSummary {
	if policy == nil {
		policy = ExcludeWithdrawn
	}

	var summary PledgeSummary
	for _, pledge := range pledges {
		if !policy(pledge.Status) {
			continue
		}
		summary.TotalPledges++
		summary.TotalQuantity += pledge.Quantity
	}
	return summary
}
