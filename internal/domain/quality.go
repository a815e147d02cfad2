package domain

import "fmt"

// Quality is the user's 0-5 rating of how well a card was recalled.
// Ratings of 3 and above count as correct.
type Quality int

// Named quality levels offered by the UI. Intermediate values 2 and 5 are
// accepted anywhere a Quality is.
const (
	Again Quality = 0 // complete blackout
	Hard  Quality = 1 // incorrect, but the answer rang a bell
	Good  Quality = 3 // correct after some hesitation
	Easy  Quality = 4 // effortless recall
)

// IsValid reports whether q is inside the documented 0-5 range.
func (q Quality) IsValid() bool {
	return q >= 0 && q <= 5
}

// Correct reports whether the rating counts as a successful recall.
func (q Quality) Correct() bool {
	return q >= 3
}

// String returns a short label for the rating.
func (q Quality) String() string {
	switch q {
	case Again:
		return "Again"
	case Hard:
		return "Hard"
	case Good:
		return "Good"
	case Easy:
		return "Easy"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}
