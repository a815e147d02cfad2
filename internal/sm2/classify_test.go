package sm2

import (
	"testing"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	tests := []struct {
		name     string
		progress domain.CardProgress
		want     State
	}{
		{"default record", domain.NewCardProgress("a"), New},
		{"zero reviews despite dates", domain.CardProgress{ID: "a", Interval: 30, NextReviewDate: &past}, New},
		{"short interval overdue", progress(5, &past), Learning},
		{"short interval not due", progress(5, &future), Learning},
		{"interval just under mature", progress(20, &past), Learning},
		{"mature and overdue", progress(21, &past), Due},
		{"mature due exactly now", progress(30, &now), Due},
		{"mature not yet due", progress(30, &future), Learning},
		{"mature with no due date", progress(30, nil), Learning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.progress, now); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func progress(interval int, nextReview *time.Time) domain.CardProgress {
	return domain.CardProgress{
		ID:             "a",
		Interval:       interval,
		EaseFactor:     2.5,
		ReviewCount:    1,
		NextReviewDate: nextReview,
	}
}

func TestStateString(t *testing.T) {
	if New.String() != "new" || Learning.String() != "learning" || Due.String() != "due" {
		t.Errorf("unexpected state names: %s %s %s", New, Learning, Due)
	}
}

func TestStateMarshalText(t *testing.T) {
	got, err := Due.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(got) != "due" {
		t.Errorf("Expected %q, got %q", "due", got)
	}

	if _, err := State(99).MarshalText(); err == nil {
		t.Error("Expected an error for an invalid state")
	}
}
