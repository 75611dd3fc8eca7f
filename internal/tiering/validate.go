package tiering

import (
	"sort"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

// ValidationKind names the check a bracket set failed.
type ValidationKind string

const (
	KindMinExceedsMax     ValidationKind = "min_exceeds_max"
	KindOverlappingRanges ValidationKind = "overlapping_ranges"
)

// Validation is the structured outcome of a bracket set check. It is a plain
// value, not an error, so form handlers can render inline messages without
// aborting the edit session.
type Validation struct {
	OK               bool
	Kind             ValidationKind
	OffendingIndices []int
}

func valid() Validation {
	return Validation{OK: true}
}

func invalid(kind ValidationKind, indices ...int) Validation {
	return Validation{OK: false, Kind: kind, OffendingIndices: indices}
}

// ValidateBracketSet checks a campaign's discount brackets for internal
// consistency: each bracket's own range must not be inverted, and ranges must
// be pairwise non-overlapping once sorted by minimum quantity. A nil
// MaxQuantity means unbounded above, so any bracket sorted after it overlaps.
// Offending indices refer to positions in the caller's original slice.
func ValidateBracketSet(brackets []models.DiscountBracket) Validation {
	// Inverted ranges are reported against the original order, before any
	// sorting, so the first bracket the user entered wrong is the one named.
	for i, b := range brackets {
		if b.MaxQuantity != nil && *b.MaxQuantity < b.MinQuantity {
			return invalid(KindMinExceedsMax, i)
		}
	}

	if len(brackets) < 2 {
		return valid()
	}

	order := make([]int, len(brackets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return brackets[order[a]].MinQuantity < brackets[order[b]].MinQuantity
	})

	for i := 0; i < len(order)-1; i++ {
		current := brackets[order[i]]
		next := brackets[order[i+1]]
		// nil max is +infinity: anything sorted after it overlaps. Equal
		// minimums are zero-width overlaps and fail the same check.
		if current.MaxQuantity == nil || *current.MaxQuantity >= next.MinQuantity {
			return invalid(KindOverlappingRanges, order[i], order[i+1])
		}
	}

	return valid()
}

// CheckPriceMonotonicity reports the original indices of brackets whose unit
// price is higher than the preceding bracket's when ordered by BracketOrder.
// Business intent is that higher tiers are cheaper, but this has never been a
// hard validation rule; callers log the result instead of rejecting the set.
func CheckPriceMonotonicity(brackets []models.DiscountBracket) []int {
	if len(brackets) < 2 {
		return nil
	}

	order := make([]int, len(brackets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return brackets[order[a]].BracketOrder < brackets[order[b]].BracketOrder
	})

	var offending []int
	for i := 1; i < len(order); i++ {
		prev := brackets[order[i-1]]
		curr := brackets[order[i]]
		if curr.UnitPrice.GreaterThan(prev.UnitPrice) {
			offending = append(offending, order[i])
		}
	}
	return offending
}
