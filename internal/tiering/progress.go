package tiering

import (
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// Classify places a bracket relative to the resolved current bracket:
// everything before it (by sorted position) is achieved, the current bracket
// itself is current, everything after is locked. With no current bracket the
// campaign is in the pre-bracket state and every tier is locked.
//
// Brackets are matched by MinQuantity, which is unique within any bracket set
// that passed validation.
func Classify(bracket models.DiscountBracket, current *models.DiscountBracket) enums.BracketStanding {
	if current == nil {
		return enums.BracketStandingLocked
	}
	switch {
	case bracket.MinQuantity < current.MinQuantity:
		return enums.BracketStandingAchieved
	case bracket.MinQuantity == current.MinQuantity:
		return enums.BracketStandingCurrent
	default:
		return enums.BracketStandingLocked
	}
}

// PercentWithinBracket reports how far the quantity has progressed from the
// current bracket's start toward the next bracket's start, clamped to
// [0,100]. It trusts the resolver's output and never fails: with no next
// bracket there is nothing left to unlock, and a degenerate zero-width range
// reads as complete. The result only drives progress-bar fill, never pricing.
func PercentWithinBracket(quantity int64, current, next *models.DiscountBracket) float64 {
	if next == nil {
		return 100
	}

	var start int64
	if current != nil {
		start = current.MinQuantity
	}

	span := next.MinQuantity - start
	if span == 0 {
		return 100
	}

	percent := float64(quantity-start) / float64(span) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
