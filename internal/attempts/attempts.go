// Package attempts is the append-only history of answered reviews.
package attempts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

// Log records attempts. There is no way to change or remove one.
type Log struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store storage.Store, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, log: logger.With("component", "attempts"), now: time.Now}
}

// Record validates and appends a. Missing ID and Date are filled in. The
// question does not have to exist.
func (l *Log) Record(ctx context.Context, a models.Attempt) (models.Attempt, error) {
	if a.QuestionID == "" {
		return models.Attempt{}, &models.ValidationError{Field: "question_id", Message: "is required"}
	}
	if err := models.ValidateScore(a.AIScore); err != nil {
		return models.Attempt{}, err
	}
	if a.Duration < 0 {
		return models.Attempt{}, &models.ValidationError{Field: "duration", Message: "must not be negative"}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Date.IsZero() {
		a.Date = l.now()
	}

	if err := l.store.AppendAttempt(ctx, a); err != nil {
		return models.Attempt{}, &models.StorageError{Op: "record attempt", Err: err}
	}
	l.log.Info("attempt recorded", "id", a.ID, "question_id", a.QuestionID, "score", a.AIScore)
	return a, nil
}

// ByQuestion returns the attempts for one question, oldest first.
func (l *Log) ByQuestion(ctx context.Context, questionID string) ([]models.Attempt, error) {
	out, err := l.store.AttemptsByQuestion(ctx, questionID)
	if err != nil {
		return nil, &models.StorageError{Op: "attempts by question", Err: err}
	}
	return out, nil
}

// All returns every attempt, oldest first, in a single read.
func (l *Log) All(ctx context.Context) ([]models.Attempt, error) {
	out, err := l.store.AllAttempts(ctx)
	if err != nil {
		return nil, &models.StorageError{Op: "all attempts", Err: err}
	}
	return out, nil
}

// Since returns the attempts dated at or after t.
func (l *Log) Since(ctx context.Context, t time.Time) ([]models.Attempt, error) {
	out, err := l.store.AttemptsSince(ctx, t)
	if err != nil {
		return nil, &models.StorageError{Op: "attempts since", Err: err}
	}
	return out, nil
}
