// Package stats derives progress statistics from the question set and the
// attempt history. Nothing here is stored; every figure is recomputed.
package stats

import (
	"sort"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

const (
	// SuccessScore is the lowest score counted as a successful recall.
	SuccessScore = 7
	// MaxDailyBuckets caps the days returned by DailyProgress.
	MaxDailyBuckets = 30

	LearningInterval = 7  // interval below this: still learning
	MasteredInterval = 30 // interval above this: mastered
)

type Summary struct {
	TotalAttempts  int     `json:"total_attempts"`
	AverageScore   float64 `json:"average_score"`
	SuccessRate    float64 `json:"success_rate"`     // 0-1
	TotalStudyTime int     `json:"total_study_time"` // Seconds
}

type CategoryStat struct {
	CategoryID   string  `json:"category_id"`
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

type DayStat struct {
	Day          time.Time `json:"day"` // Local midnight
	Count        int       `json:"count"`
	AverageScore float64   `json:"average_score"`
}

type Breakdown struct {
	Total        int         `json:"total"`
	Due          int         `json:"due"`
	Learning     int         `json:"learning"`
	Mastered     int         `json:"mastered"`
	InProgress   int         `json:"in_progress"`
	ByDifficulty map[int]int `json:"by_difficulty"`
}

// Summarize computes the global totals. Attempts for deleted questions count.
func Summarize(attempts []models.Attempt) Summary {
	var s Summary
	s.TotalAttempts = len(attempts)
	if s.TotalAttempts == 0 {
		return s
	}
	var sum float64
	success := 0
	for _, a := range attempts {
		sum += a.AIScore
		s.TotalStudyTime += a.Duration
		if a.AIScore >= SuccessScore {
			success++
		}
	}
	s.AverageScore = sum / float64(s.TotalAttempts)
	s.SuccessRate = float64(success) / float64(s.TotalAttempts)
	return s
}

// PerCategory groups attempts by the category of their question. Attempts
// whose question or category no longer exists are left out. Results are
// sorted by average score, best first, then by name.
func PerCategory(categories []models.Category, questions []models.Question, attempts []models.Attempt) []CategoryStat {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	owner := make(map[string]string, len(questions))
	for _, q := range questions {
		owner[q.ID] = q.CategoryID
	}

	type acc struct {
		count int
		sum   float64
	}
	groups := make(map[string]*acc)
	for _, a := range attempts {
		cid, ok := owner[a.QuestionID]
		if !ok {
			continue
		}
		if _, ok := names[cid]; !ok {
			continue
		}
		g := groups[cid]
		if g == nil {
			g = &acc{}
			groups[cid] = g
		}
		g.count++
		g.sum += a.AIScore
	}

	out := make([]CategoryStat, 0, len(groups))
	for cid, g := range groups {
		out = append(out, CategoryStat{
			CategoryID:   cid,
			Name:         names[cid],
			Count:        g.count,
			AverageScore: g.sum / float64(g.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// DailyProgress buckets the attempts of the last windowDays calendar days,
// today included, by day in now's location. Days without attempts are
// omitted. At most the MaxDailyBuckets most recent days are returned,
// oldest first.
func DailyProgress(attempts []models.Attempt, windowDays int, now time.Time) []DayStat {
	if windowDays <= 0 {
		return nil
	}
	loc := now.Location()
	start := startOfDay(now).AddDate(0, 0, -(windowDays - 1))

	byDay := make(map[time.Time]*DayStat)
	for _, a := range attempts {
		d := a.Date.In(loc)
		if d.Before(start) || d.After(now) {
			continue
		}
		key := startOfDay(d)
		b := byDay[key]
		if b == nil {
			b = &DayStat{Day: key}
			byDay[key] = b
		}
		b.Count++
		b.AverageScore += a.AIScore
	}

	out := make([]DayStat, 0, len(byDay))
	for _, b := range byDay {
		b.AverageScore /= float64(b.Count)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	if len(out) > MaxDailyBuckets {
		out = out[len(out)-MaxDailyBuckets:]
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// QuestionBreakdown classifies questions by review state and difficulty.
func QuestionBreakdown(questions []models.Question, now time.Time) Breakdown {
	b := Breakdown{Total: len(questions), ByDifficulty: make(map[int]int)}
	for _, q := range questions {
		if !q.NextReview.After(now) {
			b.Due++
		}
		switch {
		case q.Interval < LearningInterval:
			b.Learning++
		case q.Interval > MasteredInterval:
			b.Mastered++
		default:
			b.InProgress++
		}
		b.ByDifficulty[q.Difficulty]++
	}
	return b
}

// CountSince counts attempts dated at or after t.
func CountSince(attempts []models.Attempt, t time.Time) int {
	n := 0
	for _, a := range attempts {
		if !a.Date.Before(t) {
			n++
		}
	}
	return n
}
