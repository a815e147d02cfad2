package sm2

import (
	"fmt"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
)

// State is the classification bucket a card falls into for queue display.
type State int

const (
	New      State = iota // never rated
	Learning              // rated, but the interval is still short
	Due                   // mature and past its review date
)

var stateNames = [...]string{New: "new", Learning: "learning", Due: "due"}

// String returns the lowercase name of the state.
func (s State) String() string {
	if s >= New && s <= Due {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler so states serialize as their
// names in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	if s < New || s > Due {
		return nil, fmt.Errorf("sm2: invalid state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// Classify buckets a card's progress at the given time. The rules are
// evaluated in order and are total: every record maps to exactly one state.
//
// A card with no ratings is New. A rated card whose interval is still under
// three weeks is Learning no matter what its due date says; such cards are
// surfaced under their own counter rather than mixed in with mature due
// cards. A mature card is Due once its review date has passed, and Learning
// until then.
func Classify(progress domain.CardProgress, now time.Time) State {
	if progress.ReviewCount == 0 {
		return New
	}
	if progress.Interval < matureInterval {
		return Learning
	}
	if progress.NextReviewDate != nil && IsDue(*progress.NextReviewDate, now) {
		return Due
	}
	return Learning
}
