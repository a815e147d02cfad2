// Package session drives a single study pass over a composed queue: it
// applies ratings through the SM-2 calculator, persists progress and history
// through the store, and accumulates session statistics.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/notedeck/notedeck/internal/domain"
	"github.com/notedeck/notedeck/internal/progress"
	"github.com/notedeck/notedeck/internal/queue"
	"github.com/notedeck/notedeck/internal/sm2"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrNotActive      = errors.New("session: not active")
	ErrNoCurrentCard  = errors.New("session: no current card")
	ErrInvalidQuality = errors.New("session: quality out of range")
)

// Status is the lifecycle state of a session.
type Status int

const (
	Active    Status = iota + 1 // cards remain to be rated
	Complete                    // every card in the queue was rated
	Cancelled                   // caller abandoned the pass early
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stats accumulates over one study pass.
type Stats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Correct   int `json:"correct"`
}

// Config describes the study pass to start. Cards is the full card set the
// queue is composed from; Custom is only read in custom mode. A nil Rand
// gets a time-seeded source.
type Config struct {
	Mode   queue.Mode
	Cards  []domain.Card
	Custom []domain.Card
	Rand   *rand.Rand
}

// Session is one in-flight study pass. The queue is fixed at start: ratings
// change persisted progress but never remove or reorder cards within the
// running session. Not safe for concurrent use; the engine assumes one
// active session, enforced by the caller.
type Session struct {
	id     string
	mode   queue.Mode
	store  progress.Store
	queue  []domain.Card
	cursor int
	stats  Stats
	status Status
}

// Start composes the queue for cfg and begins a session at now. If the
// composition is empty no session is created and the queue error is
// returned.
func Start(store progress.Store, cfg Config, now time.Time) (*Session, error) {
	cards, err := queue.Compose(cfg.Mode, cfg.Cards, store, now, cfg.Custom, cfg.Rand)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:     uuid.NewString(),
		mode:   cfg.Mode,
		store:  store,
		queue:  cards,
		stats:  Stats{Total: len(cards)},
		status: Active,
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Mode returns the study mode the session was started with.
func (s *Session) Mode() queue.Mode { return s.mode }

// Status returns the session's lifecycle state.
func (s *Session) Status() Status { return s.status }

// Stats returns a copy of the accumulated statistics.
func (s *Session) Stats() Stats { return s.stats }

// Remaining returns how many cards are left to rate, including the current one.
func (s *Session) Remaining() int {
	if s.status != Active {
		return 0
	}
	return len(s.queue) - s.cursor
}

// CurrentCard returns the card at the cursor. ok is false once the session
// is no longer active or the queue is exhausted.
func (s *Session) CurrentCard() (domain.Card, bool) {
	if s.status != Active || s.cursor >= len(s.queue) {
		return domain.Card{}, false
	}
	return s.queue[s.cursor], true
}

// Rate applies a quality rating to the current card at now.
//
// The rating is one logical transaction: fetch progress, compute the SM-2
// update, persist the rebuilt record, append a history entry, then update
// session stats and advance the cursor. Any store failure aborts before the
// session is mutated, so the caller can retry the same rating.
func (s *Session) Rate(quality domain.Quality, now time.Time) error {
	if s.status != Active {
		return ErrNotActive
	}
	card, ok := s.CurrentCard()
	if !ok {
		return ErrNoCurrentCard
	}
	if !quality.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, int(quality))
	}

	prev, err := s.store.Get(card.ID)
	if err != nil {
		return fmt.Errorf("session: get progress: %w", err)
	}

	next := sm2.NextState(prev.Interval, prev.EaseFactor, quality)
	due := sm2.NextReviewDate(now, next.Interval)

	updated := prev
	updated.ID = card.ID
	updated.Interval = next.Interval
	updated.EaseFactor = next.EaseFactor
	updated.ReviewCount = prev.ReviewCount + 1
	if quality.Correct() {
		updated.CorrectCount = prev.CorrectCount + 1
	}
	updated.NextReviewDate = &due
	if updated.CreatedAt == nil {
		createdAt := now
		updated.CreatedAt = &createdAt
	}
	lastReviewed := now
	updated.LastReviewedAt = &lastReviewed

	if err := s.store.Put(updated); err != nil {
		return fmt.Errorf("session: put progress: %w", err)
	}
	if err := s.store.AppendHistory(domain.ReviewRecord{
		CardID:     card.ID,
		CardTitle:  card.Title,
		Quality:    quality,
		Interval:   next.Interval,
		EaseFactor: next.EaseFactor,
	}); err != nil {
		return fmt.Errorf("session: append history: %w", err)
	}

	s.stats.Completed++
	if quality.Correct() {
		s.stats.Correct++
	}
	if s.cursor < len(s.queue)-1 {
		s.cursor++
	} else {
		s.status = Complete
	}
	return nil
}

// Cancel abandons the session. Ratings already persisted stay persisted;
// only further progression stops. Callers should confirm intent first.
func (s *Session) Cancel() error {
	if s.status != Active {
		return ErrNotActive
	}
	s.status = Cancelled
	return nil
}
