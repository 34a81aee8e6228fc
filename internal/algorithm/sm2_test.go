package algorithm

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func freshQuestion() models.Question {
	return InitQuestion(models.Question{ID: "q1", Text: "?", Difficulty: 3, CategoryID: "c"}, t0)
}

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestQuality(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 0}, {1, 1}, {2.9, 1}, {5, 3}, {6, 3}, {7, 4}, {9, 5}, {10, 5},
	}
	for _, tt := range tests {
		if got := Quality(tt.score); got != tt.want {
			t.Errorf("Quality(%v) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestInitQuestion(t *testing.T) {
	q := freshQuestion()
	if q.Interval != 0 {
		t.Errorf("Interval = %d, want 0", q.Interval)
	}
	assertFloat(t, "EaseFactor", q.EaseFactor, 2.5)
	if !q.NextReview.Equal(t0) {
		t.Errorf("NextReview = %v, want %v", q.NextReview, t0)
	}
}

func TestScheduleConcreteScenario(t *testing.T) {
	q, err := Schedule(freshQuestion(), 9, t0)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if q.Interval != 1 {
		t.Errorf("Interval = %d, want 1", q.Interval)
	}
	assertFloat(t, "EaseFactor", q.EaseFactor, 2.6)
	if want := t0.AddDate(0, 0, 1); !q.NextReview.Equal(want) {
		t.Errorf("NextReview = %v, want %v", q.NextReview, want)
	}
	if q.LastReviewed == nil || !q.LastReviewed.Equal(t0) {
		t.Errorf("LastReviewed = %v, want %v", q.LastReviewed, t0)
	}

	q, err = Schedule(q, 9, t0)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if q.Interval != 6 {
		t.Errorf("second Interval = %d, want 6", q.Interval)
	}
}

func TestScheduleIntervalSequence(t *testing.T) {
	q := freshQuestion()
	var intervals []int
	for i := 0; i < 4; i++ {
		prevFactor := q.EaseFactor
		prevInterval := q.Interval
		var err error
		q, err = Schedule(q, 10, t0)
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		if prevInterval > 1 {
			if want := int(math.Round(float64(prevInterval) * prevFactor)); q.Interval != want {
				t.Errorf("step %d Interval = %d, want %d", i, q.Interval, want)
			}
		}
		intervals = append(intervals, q.Interval)
	}
	want := []int{1, 6, 16, 45} // 6*2.7=16.2, 16*2.8=44.8
	for i := range want {
		if intervals[i] != want[i] {
			t.Fatalf("intervals = %v, want %v", intervals, want)
		}
	}
}

func TestScheduleFailureResetsInterval(t *testing.T) {
	starts := []models.Question{
		{Interval: 0, EaseFactor: 2.5},
		{Interval: 1, EaseFactor: 1.3},
		{Interval: 45, EaseFactor: 2.8},
		{Interval: 300, EaseFactor: 1.9},
	}
	for _, start := range starts {
		for _, score := range []float64{0, 2, 4, 4.9} {
			q, err := Schedule(start, score, t0)
			if err != nil {
				t.Fatalf("Schedule: %v", err)
			}
			if q.Interval != 1 {
				t.Errorf("Schedule(%+v, %v).Interval = %d, want 1", start, score, q.Interval)
			}
			assertFloat(t, "EaseFactor", q.EaseFactor, start.EaseFactor)
		}
	}
}

// A score of 5 rounds to quality 3 and counts as a pass. Every score below
// 5 fails.
func TestScheduleScoreFiveIsLowestPass(t *testing.T) {
	start := models.Question{Interval: 45, EaseFactor: 2.8}
	failed, _ := Schedule(start, 4.9, t0)
	if failed.Interval != 1 {
		t.Errorf("score 4.9: interval = %d, want 1", failed.Interval)
	}
	passed, _ := Schedule(start, 5, t0)
	if passed.Interval != 126 {
		t.Errorf("score 5: interval = %d, want 126", passed.Interval)
	}
	assertFloat(t, "EaseFactor", passed.EaseFactor, 2.66)
}

func TestScheduleFactorMonotonic(t *testing.T) {
	q := freshQuestion()
	for i := 0; i < 10; i++ {
		next, _ := Schedule(q, 10, t0)
		if next.EaseFactor < q.EaseFactor {
			t.Fatalf("quality 5 decreased factor: %v -> %v", q.EaseFactor, next.EaseFactor)
		}
		q = next
	}

	q = freshQuestion()
	for i := 0; i < 20; i++ {
		next, _ := Schedule(q, 6, t0) // quality 3
		if next.EaseFactor > q.EaseFactor {
			t.Fatalf("quality 3 increased factor: %v -> %v", q.EaseFactor, next.EaseFactor)
		}
		if next.EaseFactor < models.MinEaseFactor {
			t.Fatalf("factor %v below floor", next.EaseFactor)
		}
		q = next
	}
	assertFloat(t, "EaseFactor", q.EaseFactor, models.MinEaseFactor)
}

func TestScheduleQualityFourKeepsFactor(t *testing.T) {
	q, _ := Schedule(freshQuestion(), 8, t0)
	assertFloat(t, "EaseFactor", q.EaseFactor, 2.5)
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	in := freshQuestion()
	in.Tags = []string{"x"}
	out, _ := Schedule(in, 10, t0)
	out.Tags[0] = "y"
	if in.Interval != 0 || in.LastReviewed != nil || in.Tags[0] != "x" {
		t.Errorf("input mutated: %+v", in)
	}
}

func TestScheduleRejectsOutOfRangeScore(t *testing.T) {
	for _, s := range []float64{-1, 10.5, math.NaN()} {
		_, err := Schedule(freshQuestion(), s, t0)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Schedule(score=%v) error = %v, want ValidationError", s, err)
		}
	}
}
