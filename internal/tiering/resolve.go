package tiering

import (
	"sort"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

// Resolution is the outcome of matching an aggregate pledged quantity against
// a campaign's bracket set. Current is nil in the pre-bracket state (quantity
// below the first bracket or inside a configured gap). Next is nil at the top
// tier. UnitsToNext is nil exactly when Next is nil.
type Resolution struct {
	Current     *models.DiscountBracket
	Next        *models.DiscountBracket
	UnitsToNext *int64
}

// Resolve determines the current and next discount brackets for the given
// total pledged quantity. Brackets are sorted by MinQuantity before matching,
// so callers may pass them in any order. Range bounds are inclusive on both
// ends and a nil MaxQuantity is unbounded above.
func Resolve(totalQuantity int64, brackets []models.DiscountBracket) Resolution {
	if len(brackets) == 0 {
		return Resolution{}
	}

	sorted := make([]models.DiscountBracket, len(brackets))
	copy(sorted, brackets)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].MinQuantity < sorted[b].MinQuantity
	})

	for i := range sorted {
		if sorted[i].Contains(totalQuantity) {
			res := Resolution{Current: &sorted[i]}
			if i+1 < len(sorted) {
				res.Next = &sorted[i+1]
				res.UnitsToNext = unitsBetween(totalQuantity, sorted[i+1].MinQuantity)
			}
			return res
		}
	}

	// No bracket contains the quantity: the next bracket is the first one
	// whose minimum is still above it.
	for i := range sorted {
		if sorted[i].MinQuantity > totalQuantity {
			return Resolution{
				Next:        &sorted[i],
				UnitsToNext: unitsBetween(totalQuantity, sorted[i].MinQuantity),
			}
		}
	}

	return Resolution{}
}

func unitsBetween(quantity, nextMin int64) *int64 {
	units := nextMin - quantity
	return &units
}
