package enums

// BracketStanding classifies a discount bracket relative to the campaign's
// current aggregate quantity. It only feeds progress visualization.
type BracketStanding string

const (
	BracketStandingAchieved BracketStanding = "achieved"
	BracketStandingCurrent  BracketStanding = "current"
	BracketStandingLocked   BracketStanding = "locked"
)

// String implements fmt.Stringer.
func (b BracketStanding) String() string {
	return string(b)
}
