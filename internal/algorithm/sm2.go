package algorithm

import (
	"math"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// Default settings for new questions
const (
	InitialInterval   = 0
	InitialEaseFactor = 2.5
	PassingQuality    = 3
)

// Quality maps an external 0-10 score onto the SM-2 0-5 scale. Halves round
// up, so 5 maps to PassingQuality and 4.9 is the highest failing score.
func Quality(score float64) int {
	q := int(math.Round(score / 2))
	if q < 0 {
		q = 0
	}
	if q > 5 {
		q = 5
	}
	return q
}

// Schedule updates the question based on the externally graded score of a
// review session. The input is not mutated.
// score: 0 (wrong) to 10 (perfect)
func Schedule(q models.Question, score float64, now time.Time) (models.Question, error) {
	if err := models.ValidateScore(score); err != nil {
		return q, err
	}
	out := q.Clone()
	quality := Quality(score)

	if out.EaseFactor < models.MinEaseFactor {
		out.EaseFactor = models.MinEaseFactor
	}

	if quality < PassingQuality {
		// Failed recall: start over, keep the ease factor.
		out.Interval = 1
	} else {
		switch out.Interval {
		case 0:
			out.Interval = 1
		case 1:
			out.Interval = 6
		default:
			out.Interval = int(math.Round(float64(out.Interval) * out.EaseFactor))
		}

		// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q)*0.02))
		d := float64(5 - quality)
		out.EaseFactor += 0.1 - d*(0.08+d*0.02)
		if out.EaseFactor < models.MinEaseFactor {
			out.EaseFactor = models.MinEaseFactor
		}
	}

	reviewed := now
	out.LastReviewed = &reviewed
	out.NextReview = now.AddDate(0, 0, out.Interval)
	return out, nil
}

// InitQuestion sets scheduling defaults for a new question. A new question is
// due immediately.
func InitQuestion(q models.Question, now time.Time) models.Question {
	if q.EaseFactor == 0 {
		q.EaseFactor = InitialEaseFactor
	}
	q.Interval = InitialInterval
	if q.NextReview.IsZero() {
		q.NextReview = now
	}
	return q
}
