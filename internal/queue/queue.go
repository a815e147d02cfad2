// Package queue composes the ordered set of cards for one study session and
// reports classification counts for the whole card set.
package queue

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
	"github.com/notedeck/notedeck/internal/progress"
	"github.com/notedeck/notedeck/internal/sm2"
)

// Mode selects which cards go into a session queue.
type Mode string

const (
	ModeDue    Mode = "due"    // mature cards past their review date
	ModeNew    Mode = "new"    // cards never rated
	ModeAll    Mode = "all"    // every card
	ModeCustom Mode = "custom" // caller-picked cards, caller order
)

// IsValid reports whether m is one of the four study modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeDue, ModeNew, ModeAll, ModeCustom:
		return true
	}
	return false
}

// ErrEmptyQueue is returned when composition selects no cards. Check with
// errors.Is; the wrapped message names the mode.
var ErrEmptyQueue = errors.New("queue: no cards available")

// ErrInvalidMode is returned for modes outside the four study modes.
var ErrInvalidMode = errors.New("queue: invalid mode")

// Compose selects and orders the cards for a session.
//
// Custom mode returns the custom selection verbatim, preserving the caller's
// order. The other modes filter cards by their classification at now (all
// keeps everything) and then shuffle the result with rng so presentation
// order varies between sessions. A nil rng gets a time-seeded source.
func Compose(mode Mode, cards []domain.Card, store progress.Store, now time.Time, custom []domain.Card, rng *rand.Rand) ([]domain.Card, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
	}

	if mode == ModeCustom {
		if len(custom) == 0 {
			return nil, fmt.Errorf("%w for mode %s", ErrEmptyQueue, mode)
		}
		out := make([]domain.Card, len(custom))
		copy(out, custom)
		return out, nil
	}

	var selected []domain.Card
	for _, card := range cards {
		p, err := store.Get(card.ID)
		if err != nil {
			return nil, fmt.Errorf("queue: get progress for %s: %w", card.ID, err)
		}
		switch mode {
		case ModeAll:
			selected = append(selected, card)
		case ModeNew:
			if sm2.Classify(p, now) == sm2.New {
				selected = append(selected, card)
			}
		case ModeDue:
			if sm2.Classify(p, now) == sm2.Due {
				selected = append(selected, card)
			}
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w for mode %s", ErrEmptyQueue, mode)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected, nil
}

// Counts is the per-classification card tally shown on the dashboard,
// independent of any active session.
type Counts struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Due      int `json:"due"`
	Total    int `json:"total"`
}

// Count classifies every card at now and tallies the buckets.
func Count(cards []domain.Card, store progress.Store, now time.Time) (Counts, error) {
	var c Counts
	for _, card := range cards {
		p, err := store.Get(card.ID)
		if err != nil {
			return Counts{}, fmt.Errorf("queue: get progress for %s: %w", card.ID, err)
		}
		switch sm2.Classify(p, now) {
		case sm2.New:
			c.New++
		case sm2.Learning:
			c.Learning++
		case sm2.Due:
			c.Due++
		}
		c.Total++
	}
	return c, nil
}
