package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
	"github.com/notedeck/notedeck/internal/progress"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetDefaultsMissingRecord(t *testing.T) {
	db := openTestDB(t)

	p, err := db.Get("missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.ID != "missing" || p.Interval != 0 || p.ReviewCount != 0 {
		t.Errorf("Expected the default record, got %+v", p)
	}
	if p.EaseFactor != domain.DefaultEaseFactor {
		t.Errorf("Expected default ease, got %v", p.EaseFactor)
	}
	if p.NextReviewDate != nil || p.CreatedAt != nil || p.LastReviewedAt != nil {
		t.Errorf("Expected nil dates, got %+v", p)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	p := domain.NewCardProgress("card-1")
	p.Interval = 6
	p.EaseFactor = 2.36
	p.ReviewCount = 2
	p.CorrectCount = 1
	p.NextReviewDate = &due
	p.CreatedAt = &created
	p.LastReviewedAt = &created

	if err := db.Put(p); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := db.Get("card-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Interval != 6 || got.EaseFactor != 2.36 || got.ReviewCount != 2 || got.CorrectCount != 1 {
		t.Errorf("Round trip lost fields: %+v", got)
	}
	if got.NextReviewDate == nil || !got.NextReviewDate.Equal(due) {
		t.Errorf("Expected next review %v, got %v", due, got.NextReviewDate)
	}
	if got.CreatedAt == nil || !got.CreatedAt.Equal(created) {
		t.Errorf("Expected createdAt %v, got %v", created, got.CreatedAt)
	}
	if got.LastUpdated.IsZero() {
		t.Error("Expected Put to stamp LastUpdated")
	}

	// Upsert replaces the row.
	p.Interval = 15
	if err := db.Put(p); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}
	got, _ = db.Get("card-1")
	if got.Interval != 15 {
		t.Errorf("Expected upsert to replace the interval, got %d", got.Interval)
	}
}

func TestGetAllProgress(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		p := domain.NewCardProgress(fmt.Sprintf("card-%d", i))
		p.ReviewCount = i + 1
		if err := db.Put(p); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	all, err := db.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all["card-1"].ReviewCount != 2 {
		t.Errorf("Expected card-1 to have 2 reviews, got %d", all["card-1"].ReviewCount)
	}
}

func TestHistoryBoundAndOrder(t *testing.T) {
	db := openTestDB(t)

	total := progress.MaxHistoryEntries + 5
	for i := 0; i < total; i++ {
		err := db.AppendHistory(domain.ReviewRecord{
			CardID:    fmt.Sprintf("card-%d", i),
			CardTitle: "T",
			Quality:   domain.Good,
		})
		if err != nil {
			t.Fatalf("AppendHistory failed at %d: %v", i, err)
		}
	}

	entries, err := db.History(0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != progress.MaxHistoryEntries {
		t.Fatalf("Expected %d entries, got %d", progress.MaxHistoryEntries, len(entries))
	}
	if entries[0].CardID != fmt.Sprintf("card-%d", total-1) {
		t.Errorf("Expected the newest entry first, got %s", entries[0].CardID)
	}
	if entries[len(entries)-1].CardID != "card-5" {
		t.Errorf("Expected the 5 oldest entries discarded, oldest retained is %s", entries[len(entries)-1].CardID)
	}

	limited, err := db.History(3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("Expected 3 entries with a limit, got %d", len(limited))
	}
}

func TestHistoryEntryFields(t *testing.T) {
	db := openTestDB(t)

	err := db.AppendHistory(domain.ReviewRecord{
		CardID:     "card-1",
		CardTitle:  "Alpha",
		Quality:    domain.Easy,
		Interval:   6,
		EaseFactor: 2.6,
	})
	if err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	entries, err := db.History(1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	e := entries[0]
	if e.ID == 0 {
		t.Error("Expected the store to assign an id")
	}
	if e.Timestamp.IsZero() {
		t.Error("Expected the store to assign a timestamp")
	}
	if e.CardID != "card-1" || e.CardTitle != "Alpha" || e.Quality != domain.Easy || e.Interval != 6 || e.EaseFactor != 2.6 {
		t.Errorf("Unexpected entry %+v", e)
	}
}

func TestCardLifecycle(t *testing.T) {
	db := openTestDB(t)
	sourceID, err := db.InsertSource("/vault", "local")
	if err != nil {
		t.Fatalf("InsertSource failed: %v", err)
	}

	card := domain.Card{ID: "id-1", Title: "Alpha", Content: "Body.", Path: "/vault/a.md"}
	if err := db.UpsertCard(card, sourceID); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	// Upsert refreshes in place.
	card.Content = "Updated body."
	if err := db.UpsertCard(card, sourceID); err != nil {
		t.Fatalf("Second UpsertCard failed: %v", err)
	}

	cards, err := db.GetAllCards()
	if err != nil {
		t.Fatalf("GetAllCards failed: %v", err)
	}
	if len(cards) != 1 || cards[0].Content != "Updated body." {
		t.Errorf("Unexpected cards %+v", cards)
	}

	bySource, err := db.GetCardsBySourceID(sourceID)
	if err != nil {
		t.Fatalf("GetCardsBySourceID failed: %v", err)
	}
	if len(bySource) != 1 || bySource[0].ID != "id-1" {
		t.Errorf("Unexpected cards for source: %+v", bySource)
	}

	if err := db.DeleteCard("id-1"); err != nil {
		t.Fatalf("DeleteCard failed: %v", err)
	}
	cards, _ = db.GetAllCards()
	if len(cards) != 0 {
		t.Errorf("Expected no cards after delete, got %d", len(cards))
	}
}

func TestSourceLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertSource("git@github.com:user/notes.git", "git")
	if err != nil {
		t.Fatalf("InsertSource failed: %v", err)
	}

	found, err := db.FindSourceByPath("git@github.com:user/notes.git")
	if err != nil {
		t.Fatalf("FindSourceByPath failed: %v", err)
	}
	if found == nil || found.ID != id || found.Type != "git" {
		t.Errorf("Unexpected source %+v", found)
	}
	if found.LastScanned.Valid {
		t.Error("Expected no last_scanned before the first sync")
	}

	missing, err := db.FindSourceByPath("/nowhere")
	if err != nil {
		t.Fatalf("FindSourceByPath failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for an unknown path, got %+v", missing)
	}

	if err := db.UpdateSourceLastScanned(id); err != nil {
		t.Fatalf("UpdateSourceLastScanned failed: %v", err)
	}
	found, _ = db.FindSourceByPath("git@github.com:user/notes.git")
	if !found.LastScanned.Valid {
		t.Error("Expected last_scanned to be stamped")
	}

	// Deleting a source removes its cards too.
	if err := db.UpsertCard(domain.Card{ID: "id-1", Title: "T", Content: "b"}, id); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	if err := db.DeleteSource(id); err != nil {
		t.Fatalf("DeleteSource failed: %v", err)
	}
	sources, _ := db.GetAllSources()
	if len(sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(sources))
	}
	cards, _ := db.GetAllCards()
	if len(cards) != 0 {
		t.Errorf("Expected the source's cards deleted, got %d", len(cards))
	}
}

func TestSourceTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/vault", "local"},
		{"./notes", "local"},
		{"git@github.com:user/notes.git", "git"},
		{"https://github.com/user/notes.git", "git"},
		{"https://github.com/user/notes", "git"},
		{"http://example.com/notes.git", "git"},
	}
	for _, tt := range tests {
		if got := SourceTypeFor(tt.path); got != tt.want {
			t.Errorf("SourceTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
