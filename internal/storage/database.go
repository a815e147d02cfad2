package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
	"github.com/notedeck/notedeck/internal/progress"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection. It implements progress.Store on top
// of the card_progress and review_history tables.
type DB struct {
	conn *sql.DB
}

var _ progress.Store = (*DB)(nil)

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get implements progress.Store. A card with no stored row gets the default
// record rather than an error.
func (db *DB) Get(cardID string) (domain.CardProgress, error) {
	row := db.conn.QueryRow(`
		SELECT card_id, interval, ease_factor, review_count, correct_count,
		       next_review, created_at, last_reviewed, last_updated
		FROM card_progress WHERE card_id = ?
	`, cardID)

	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return domain.NewCardProgress(cardID), nil
	}
	if err != nil {
		return domain.CardProgress{}, fmt.Errorf("failed to get progress for %s: %w", cardID, err)
	}
	return p, nil
}

// GetAll implements progress.Store.
func (db *DB) GetAll() (map[string]domain.CardProgress, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, interval, ease_factor, review_count, correct_count,
		       next_review, created_at, last_reviewed, last_updated
		FROM card_progress
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.CardProgress)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Put implements progress.Store. The row is upserted whole and LastUpdated
// is stamped by the store.
func (db *DB) Put(p domain.CardProgress) error {
	_, err := db.conn.Exec(`
		INSERT INTO card_progress (
			card_id, interval, ease_factor, review_count, correct_count,
			next_review, created_at, last_reviewed, last_updated
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			interval = excluded.interval,
			ease_factor = excluded.ease_factor,
			review_count = excluded.review_count,
			correct_count = excluded.correct_count,
			next_review = excluded.next_review,
			created_at = excluded.created_at,
			last_reviewed = excluded.last_reviewed,
			last_updated = excluded.last_updated
	`,
		p.ID,
		p.Interval,
		p.EaseFactor,
		p.ReviewCount,
		p.CorrectCount,
		nullTime(p.NextReviewDate),
		nullTime(p.CreatedAt),
		nullTime(p.LastReviewedAt),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to put progress for %s: %w", p.ID, err)
	}
	return nil
}

// AppendHistory implements progress.Store. The id and timestamp are assigned
// here, and the log is trimmed back to the retained bound after the insert.
func (db *DB) AppendHistory(rec domain.ReviewRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO review_history (card_id, card_title, quality, interval, ease_factor, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.CardID,
		rec.CardTitle,
		int(rec.Quality),
		rec.Interval,
		rec.EaseFactor,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history for %s: %w", rec.CardID, err)
	}

	_, err = db.conn.Exec(`
		DELETE FROM review_history
		WHERE id NOT IN (SELECT id FROM review_history ORDER BY id DESC LIMIT ?)
	`, progress.MaxHistoryEntries)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// History implements progress.Store, newest entries first.
func (db *DB) History(limit int) ([]domain.ReviewHistoryEntry, error) {
	if limit <= 0 || limit > progress.MaxHistoryEntries {
		limit = progress.MaxHistoryEntries
	}
	rows, err := db.conn.Query(`
		SELECT id, card_id, card_title, quality, interval, ease_factor, timestamp
		FROM review_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []domain.ReviewHistoryEntry
	for rows.Next() {
		var e domain.ReviewHistoryEntry
		var quality int
		if err := rows.Scan(
			&e.ID,
			&e.CardID,
			&e.CardTitle,
			&quality,
			&e.Interval,
			&e.EaseFactor,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Quality = domain.Quality(quality)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertCard inserts or refreshes an imported card under the given source.
func (db *DB) UpsertCard(card domain.Card, sourceID int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, title, content, path, source_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			path = excluded.path,
			source_id = excluded.source_id
	`,
		card.ID,
		card.Title,
		card.Content,
		card.Path,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", card.ID, err)
	}
	return nil
}

// GetAllCards returns every imported card.
func (db *DB) GetAllCards() ([]domain.Card, error) {
	rows, err := db.conn.Query(`SELECT id, title, content, path FROM cards ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

// GetCardsBySourceID returns all cards imported from one source.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, content, path FROM cards WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()
	return scanCards(rows)
}

// DeleteCard removes a card by id.
func (db *DB) DeleteCard(id string) error {
	_, err := db.conn.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return nil
}

// SourceTypeFor classifies a source path as "git" or "local".
func SourceTypeFor(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// Source is a card origin, either a local path or a git URL.
type Source struct {
	ID          int64        `json:"id"`
	Path        string       `json:"path"`
	Type        string       `json:"type"` // "local" or "git"
	LastScanned sql.NullTime `json:"-"`
}

// InsertSource registers a new source and returns its id.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil when absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all registered sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`SELECT id, path, type, last_scanned FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned stamps the last_scanned time for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and every card imported from it.
func (db *DB) DeleteSource(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM cards WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards for source ID %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (domain.CardProgress, error) {
	var p domain.CardProgress
	var nextReview, createdAt, lastReviewed sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.Interval,
		&p.EaseFactor,
		&p.ReviewCount,
		&p.CorrectCount,
		&nextReview,
		&createdAt,
		&lastReviewed,
		&p.LastUpdated,
	)
	if err != nil {
		return domain.CardProgress{}, err
	}
	p.NextReviewDate = timePtr(nextReview)
	p.CreatedAt = timePtr(createdAt)
	p.LastReviewedAt = timePtr(lastReviewed)
	return p, nil
}

func scanCards(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		var path sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &path); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		c.Path = path.String
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
