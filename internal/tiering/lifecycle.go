package tiering

import (
	"errors"
	"fmt"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// ErrEmptyBracketSetOnPublish rejects activating a campaign that has no
// discount brackets at all.
var ErrEmptyBracketSetOnPublish = errors.New("campaign has no discount brackets")

// TransitionError reports a lifecycle move the state machine does not allow.
// Unlike bracket validation this fails loudly: an illegal transition means a
// bug upstream or a bypassed UI guard.
type TransitionError struct {
	From enums.CampaignStatus
	To   enums.CampaignStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("campaign transition %s -> %s not allowed", e.From, e.To)
}

// allowedTransitions is the full lifecycle graph. Time-based triggers (end
// date, grace period deadline) live in the scheduler; this table only decides
// legality. Backward or skipping moves are absent on purpose.
var allowedTransitions = map[enums.CampaignStatus][]enums.CampaignStatus{
	enums.CampaignStatusDraft: {
		enums.CampaignStatusActive,
		enums.CampaignStatusCancelled,
	},
	enums.CampaignStatusActive: {
		enums.CampaignStatusGracePeriod,
		enums.CampaignStatusCancelled,
	},
	enums.CampaignStatusGracePeriod: {
		enums.CampaignStatusLocked,
		enums.CampaignStatusDone,
		enums.CampaignStatusCancelled,
	},
}

// CanTransition reports whether the lifecycle allows moving between the two
// statuses.
func CanTransition(from, to enums.CampaignStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Transition returns a TransitionError when the move is not allowed.
func Transition(from, to enums.CampaignStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// CanEditBrackets reports whether bracket mutation is still permitted.
// Brackets freeze the moment a campaign leaves draft.
func CanEditBrackets(status enums.CampaignStatus) bool {
	return status == enums.CampaignStatusDraft
}

// CanCommitPledges reports whether pledge commitment is open. Commitment is
// the grace-period-only finalization step, distinct from pledge creation.
func CanCommitPledges(status enums.CampaignStatus) bool {
	return status == enums.CampaignStatusGracePeriod
}

// CanAcceptPledges reports whether new pledges may still be created.
func CanAcceptPledges(status enums.CampaignStatus) bool {
	return status == enums.CampaignStatusActive || status == enums.CampaignStatusGracePeriod
}

// EnsurePublishable verifies the publish preconditions: the campaign must be
// a draft with at least one bracket and the bracket set must validate. The
// returned error distinguishes an illegal transition from an empty or
// inconsistent bracket set so callers can map each to its own error kind.
func EnsurePublishable(status enums.CampaignStatus, brackets []models.DiscountBracket) error {
	if err := Transition(status, enums.CampaignStatusActive); err != nil {
		return err
	}
	if len(brackets) == 0 {
		return ErrEmptyBracketSetOnPublish
	}
	if v := ValidateBracketSet(brackets); !v.OK {
		return &BracketSetError{Validation: v}
	}
	return nil
}

// BracketSetError wraps a failed Validation for call sites that need an error
// rather than a structured result, such as the publish path.
type BracketSetError struct {
	Validation Validation
}

func (e *BracketSetError) Error() string {
	return fmt.Sprintf("bracket set invalid: %s", e.Validation.Kind)
}
