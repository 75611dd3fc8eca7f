package tiering

import (
	"testing"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
)

func TestClassify(t *testing.T) {
	first := bracket(10, maxQty(49), "25.00", 1)
	second := bracket(50, maxQty(99), "22.00", 2)
	third := bracket(100, nil, "19.50", 3)

	tests := []struct {
		name    string
		b       models.DiscountBracket
		current *models.DiscountBracket
		want    enums.BracketStanding
	}{
		{"earlier bracket is achieved", first, &second, enums.BracketStandingAchieved},
		{"matching bracket is current", second, &second, enums.BracketStandingCurrent},
		{"later bracket is locked", third, &second, enums.BracketStandingLocked},
		{"pre-bracket state locks everything", first, nil, enums.BracketStandingLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.b, tt.current); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPercentWithinBracket(t *testing.T) {
	first := bracket(10, maxQty(49), "25.00", 1)
	second := bracket(50, maxQty(99), "22.00", 2)

	// (25-10)/(50-10)*100 = 37.5
	if got := PercentWithinBracket(25, &first, &second); got != 37.5 {
		t.Fatalf("expected 37.5, got %v", got)
	}
}

func TestPercentWithinBracket_NoNextIsComplete(t *testing.T) {
	top := bracket(50, nil, "22.00", 2)
	if got := PercentWithinBracket(75, &top, nil); got != 100 {
		t.Fatalf("top tier should read 100, got %v", got)
	}
}

func TestPercentWithinBracket_PreBracketUsesZeroStart(t *testing.T) {
	first := bracket(10, maxQty(49), "25.00", 1)
	// (5-0)/(10-0)*100 = 50
	if got := PercentWithinBracket(5, nil, &first); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestPercentWithinBracket_ZeroWidthRange(t *testing.T) {
	b := bracket(10, maxQty(20), "25.00", 1)
	if got := PercentWithinBracket(10, &b, &b); got != 100 {
		t.Fatalf("zero-width span should read 100, got %v", got)
	}
}

func TestPercentWithinBracket_Clamped(t *testing.T) {
	first := bracket(10, maxQty(49), "25.00", 1)
	second := bracket(50, maxQty(99), "22.00", 2)

	if got := PercentWithinBracket(5, &first, &second); got != 0 {
		t.Fatalf("below-start quantity should clamp to 0, got %v", got)
	}
	if got := PercentWithinBracket(500, &first, &second); got != 100 {
		t.Fatalf("above-span quantity should clamp to 100, got %v", got)
	}
}
