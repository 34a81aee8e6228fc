package stats

import (
	"context"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// ContentSource is the read side of the content graph.
type ContentSource interface {
	Categories() []models.Category
	Questions() []models.Question
}

// AttemptSource is the read side of the attempt log.
type AttemptSource interface {
	All(ctx context.Context) ([]models.Attempt, error)
}

type Report struct {
	Summary          Summary        `json:"summary"`
	ReviewsLast7Days int            `json:"reviews_last_7_days"`
	Categories       []CategoryStat `json:"categories"`
	Daily            []DayStat      `json:"daily"`
	Questions        Breakdown      `json:"questions"`
}

type Aggregator struct {
	content  ContentSource
	attempts AttemptSource
}

func NewAggregator(content ContentSource, attempts AttemptSource) *Aggregator {
	return &Aggregator{content: content, attempts: attempts}
}

// Report computes every statistic from a single read of the attempt history.
func (a *Aggregator) Report(ctx context.Context, windowDays int, now time.Time) (Report, error) {
	all, err := a.attempts.All(ctx)
	if err != nil {
		return Report{}, err
	}
	categories := a.content.Categories()
	questions := a.content.Questions()

	return Report{
		Summary:          Summarize(all),
		ReviewsLast7Days: CountSince(all, now.AddDate(0, 0, -7)),
		Categories:       PerCategory(categories, questions, all),
		Daily:            DailyProgress(all, windowDays, now),
		Questions:        QuestionBreakdown(questions, now),
	}, nil
}
