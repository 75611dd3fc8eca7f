package enums

import (
	"fmt"
	"strings"
)

// PledgeStatus tracks a buyer commitment from creation to finalization.
type PledgeStatus string

const (
	PledgeStatusPending   PledgeStatus = "pending"
	PledgeStatusCommitted PledgeStatus = "committed"
	PledgeStatusWithdrawn PledgeStatus = "withdrawn"
)

var validPledgeStatuses = []PledgeStatus{
	PledgeStatusPending,
	PledgeStatusCommitted,
	PledgeStatusWithdrawn,
}

// String implements fmt.Stringer.
func (p PledgeStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PledgeStatus.
func (p PledgeStatus) IsValid() bool {
	for _, candidate := range validPledgeStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePledgeStatus converts raw input into a PledgeStatus.
func ParsePledgeStatus(value string) (PledgeStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPledgeStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pledge status %q", value)
}
