package enums

import (
	"fmt"
	"strings"
)

// CampaignStatus tracks where a campaign sits in its lifecycle.
type CampaignStatus string

const (
	CampaignStatusDraft       CampaignStatus = "draft"
	CampaignStatusActive      CampaignStatus = "active"
	CampaignStatusGracePeriod CampaignStatus = "grace_period"
	CampaignStatusLocked      CampaignStatus = "locked"
	CampaignStatusDone        CampaignStatus = "done"
	CampaignStatusCancelled   CampaignStatus = "cancelled"
)

var validCampaignStatuses = []CampaignStatus{
	CampaignStatusDraft,
	CampaignStatusActive,
	CampaignStatusGracePeriod,
	CampaignStatusLocked,
	CampaignStatusDone,
	CampaignStatusCancelled,
}

// String implements fmt.Stringer.
func (c CampaignStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CampaignStatus.
func (c CampaignStatus) IsValid() bool {
	for _, candidate := range validCampaignStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (c CampaignStatus) IsTerminal() bool {
	switch c {
	case CampaignStatusLocked, CampaignStatusDone, CampaignStatusCancelled:
		return true
	}
	return false
}

// ParseCampaignStatus converts raw input into a CampaignStatus. Case is
// normalized here, once, so downstream consumers only ever see the
// canonical lowercase form.
func ParseCampaignStatus(value string) (CampaignStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCampaignStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign status %q", value)
}
