package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCampaign OutboxAggregateType = "campaign"
	AggregatePledge   OutboxAggregateType = "pledge"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCampaign,
	AggregatePledge,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventCampaignPublished     OutboxEventType = "campaign_published"
	EventCampaignStatusChanged OutboxEventType = "campaign_status_changed"
	EventCampaignTierAdvanced  OutboxEventType = "campaign_tier_advanced"
	EventPledgeCreated         OutboxEventType = "pledge_created"
	EventPledgeWithdrawn       OutboxEventType = "pledge_withdrawn"
	EventPledgeCommitted       OutboxEventType = "pledge_committed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCampaignPublished,
	EventCampaignStatusChanged,
	EventCampaignTierAdvanced,
	EventPledgeCreated,
	EventPledgeWithdrawn,
	EventPledgeCommitted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason explains why an event landed in the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	}
	return false
}
