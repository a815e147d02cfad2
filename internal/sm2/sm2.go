// Package sm2 implements the SM-2 spaced-repetition update rule and the
// card-state classifier built on top of it. Everything here is pure: time is
// always a caller-supplied "now", so scheduling behavior is deterministic.
package sm2

import (
	"math"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
)

// MinEaseFactor is the floor the ease factor can never drop below.
const MinEaseFactor = 1.3

// matureInterval is the interval, in days, at which a card stops counting as
// Learning and its due date starts to matter for classification.
const matureInterval = 21

// Result is the outcome of applying one rating to a card's scheduling state.
type Result struct {
	Interval   int     // days until the next review, always >= 1
	EaseFactor float64 // updated ease, always >= MinEaseFactor
}

// NextState applies the SM-2 update rule for a single rating.
//
// For a correct rating (quality >= 3) the interval grows 0 -> 1 -> 6 ->
// round(interval * ease), and the ease factor is adjusted by the standard
// SM-2 quality term, floored at MinEaseFactor. An incorrect rating resets
// the interval to 1 and the ease factor to the 2.5 default, regardless of
// prior state.
func NextState(previousInterval int, easeFactor float64, quality domain.Quality) Result {
	if !quality.Correct() {
		return Result{Interval: 1, EaseFactor: domain.DefaultEaseFactor}
	}

	var interval int
	switch previousInterval {
	case 0:
		interval = 1
	case 1:
		interval = 6
	default:
		interval = int(math.Round(float64(previousInterval) * easeFactor))
	}
	if interval < 1 {
		interval = 1
	}

	q := float64(quality)
	ease := easeFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}

	return Result{Interval: interval, EaseFactor: ease}
}

// NextReviewDate returns the due date for a card reviewed at now with the
// given interval in days.
func NextReviewDate(now time.Time, interval int) time.Time {
	return now.Add(time.Duration(interval) * 24 * time.Hour)
}

// IsDue reports whether a card with the given due date is due at now.
// This is the single due predicate; queue composition and classification
// both go through it.
func IsDue(nextReview, now time.Time) bool {
	return !now.Before(nextReview)
}
