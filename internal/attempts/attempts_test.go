package attempts

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T) (*Log, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	l := New(store, nil)
	l.now = func() time.Time { return t0 }
	return l, store
}

func TestRecord_FillsDefaults(t *testing.T) {
	l, _ := newTestLog(t)
	a, err := l.Record(context.Background(), models.Attempt{QuestionID: "q1", AIScore: 8, Duration: 40})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if a.ID == "" {
		t.Error("ID was not assigned")
	}
	if !a.Date.Equal(t0) {
		t.Errorf("Date = %v, want %v", a.Date, t0)
	}

	kept, err := l.Record(context.Background(), models.Attempt{ID: "fixed", QuestionID: "q1", Date: t0.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if kept.ID != "fixed" || !kept.Date.Equal(t0.Add(-time.Hour)) {
		t.Errorf("explicit ID/Date overwritten: %+v", kept)
	}
}

func TestRecord_Validation(t *testing.T) {
	tests := []struct {
		name  string
		a     models.Attempt
		field string
	}{
		{"missing question", models.Attempt{AIScore: 5}, "question_id"},
		{"negative score", models.Attempt{QuestionID: "q", AIScore: -0.5}, "score"},
		{"score above ten", models.Attempt{QuestionID: "q", AIScore: 10.1}, "score"},
		{"NaN score", models.Attempt{QuestionID: "q", AIScore: math.NaN()}, "score"},
		{"negative duration", models.Attempt{QuestionID: "q", AIScore: 5, Duration: -1}, "duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := newTestLog(t)
			_, err := l.Record(context.Background(), tt.a)
			var ve *models.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want ValidationError on %s", err, tt.field)
			}
			all, _ := store.AllAttempts(context.Background())
			if len(all) != 0 {
				t.Error("invalid attempt was stored")
			}
		})
	}
}

func TestRecord_StorageError(t *testing.T) {
	l, store := newTestLog(t)
	store.FailNext(1)
	_, err := l.Record(context.Background(), models.Attempt{QuestionID: "q", AIScore: 5})
	var se *models.StorageError
	if !errors.As(err, &se) || !errors.Is(err, storage.ErrInjected) {
		t.Errorf("err = %v, want StorageError", err)
	}
}

func TestReads(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()
	for i, qid := range []string{"q1", "q2", "q1"} {
		_, err := l.Record(ctx, models.Attempt{QuestionID: qid, AIScore: float64(i), Date: t0.Add(time.Duration(i) * time.Hour)})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := l.All(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("All = %d, %v", len(all), err)
	}
	byQ, _ := l.ByQuestion(ctx, "q1")
	if len(byQ) != 2 || byQ[0].AIScore != 0 || byQ[1].AIScore != 2 {
		t.Errorf("ByQuestion(q1) = %+v", byQ)
	}
	since, _ := l.Since(ctx, t0.Add(time.Hour))
	if len(since) != 2 {
		t.Errorf("Since = %d, want 2", len(since))
	}
	none, _ := l.ByQuestion(ctx, "deleted")
	if len(none) != 0 {
		t.Errorf("ByQuestion(deleted) = %d, want 0", len(none))
	}
}
