package domain

import "time"

// Card is a single study card produced by the note importer.
// The scheduling engine only reads ID, Title and Content; the rest is
// display material carried through untouched.
type Card struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Path        string         `json:"path,omitempty"`
	FrontMatter map[string]any `json:"front_matter,omitempty"`
}

// DefaultEaseFactor is the ease assigned to a card before its first rating.
const DefaultEaseFactor = 2.5

// CardProgress is the persisted scheduling state for one card.
// NextReviewDate, CreatedAt and LastReviewedAt are nil until the first rating.
type CardProgress struct {
	ID             string     `json:"id"`
	Interval       int        `json:"interval"`
	EaseFactor     float64    `json:"easeFactor"`
	ReviewCount    int        `json:"reviewCount"`
	CorrectCount   int        `json:"correctCount"`
	NextReviewDate *time.Time `json:"nextReviewDate"`
	CreatedAt      *time.Time `json:"createdAt"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"`
	LastUpdated    time.Time  `json:"lastUpdated"`
}

// NewCardProgress returns the default record for a card that has never been
// rated: interval 0, ease 2.5, zero counts, no dates.
func NewCardProgress(id string) CardProgress {
	return CardProgress{
		ID:         id,
		EaseFactor: DefaultEaseFactor,
	}
}

// ReviewRecord is the caller-supplied part of a history entry. The store
// assigns the id and timestamp when the record is appended.
type ReviewRecord struct {
	CardID     string  `json:"cardId"`
	CardTitle  string  `json:"cardTitle"`
	Quality    Quality `json:"quality"`
	Interval   int     `json:"interval"`
	EaseFactor float64 `json:"easeFactor"`
}

// ReviewHistoryEntry is one line of the append-only review log.
type ReviewHistoryEntry struct {
	ID int64 `json:"id"`
	ReviewRecord
	Timestamp time.Time `json:"timestamp"`
}
