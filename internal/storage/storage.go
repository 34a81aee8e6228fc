// Package storage defines the persistence port of the content graph and the
// attempt log. Implementations live in internal/db (SQLite), internal/kvstore
// (Redis) and this package (in-memory).
package storage

import (
	"context"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// Batch is a unit of work committed atomically by Store.Apply.
// Deletes are applied after puts.
type Batch struct {
	PutCategories    []models.Category
	PutQuestions     []models.Question
	DeleteCategories []string
	DeleteQuestions  []string
}

// Empty reports whether the batch has nothing to write.
func (b Batch) Empty() bool {
	return len(b.PutCategories) == 0 && len(b.PutQuestions) == 0 &&
		len(b.DeleteCategories) == 0 && len(b.DeleteQuestions) == 0
}

// Store is the storage port. Load and list methods return records in
// insertion order; attempt reads are ordered by date.
type Store interface {
	LoadCategories(ctx context.Context) ([]models.Category, error)
	LoadQuestions(ctx context.Context) ([]models.Question, error)

	ChildCategories(ctx context.Context, parentID string) ([]models.Category, error)
	QuestionsByCategory(ctx context.Context, categoryID string) ([]models.Question, error)
	QuestionsByTag(ctx context.Context, tag string) ([]models.Question, error)

	// Apply commits every write of the batch or none of them.
	Apply(ctx context.Context, b Batch) error

	AppendAttempt(ctx context.Context, a models.Attempt) error
	AllAttempts(ctx context.Context) ([]models.Attempt, error)
	AttemptsByQuestion(ctx context.Context, questionID string) ([]models.Attempt, error)
	AttemptsSince(ctx context.Context, since time.Time) ([]models.Attempt, error)

	Close() error
}
