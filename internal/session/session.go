// Package session selects and orders the questions of one review pass.
package session

import (
	"sort"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// Selection narrows a session. Empty CategoryIDs or Tags mean no filter on
// that dimension; a zero DueBy disables the due filter.
type Selection struct {
	CategoryIDs []string
	Tags        []string
	DueBy       time.Time
}

// Session is a restartable cursor over the selected questions.
type Session struct {
	questions []models.Question
	pos       int
}

// Build returns every question matching sel, soonest NextReview first. Ties
// keep the order of questions.
func Build(categories []models.Category, questions []models.Question, sel Selection) *Session {
	var inCategory map[string]struct{}
	if len(sel.CategoryIDs) > 0 {
		inCategory = closure(categories, sel.CategoryIDs)
	}
	var tags map[string]struct{}
	if len(sel.Tags) > 0 {
		tags = make(map[string]struct{}, len(sel.Tags))
		for _, t := range sel.Tags {
			tags[t] = struct{}{}
		}
	}

	var picked []models.Question
	for _, q := range questions {
		if inCategory != nil {
			if _, ok := inCategory[q.CategoryID]; !ok {
				continue
			}
		}
		if tags != nil && !q.HasAnyTag(tags) {
			continue
		}
		if !sel.DueBy.IsZero() && q.NextReview.After(sel.DueBy) {
			continue
		}
		picked = append(picked, q.Clone())
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].NextReview.Before(picked[j].NextReview)
	})
	return &Session{questions: picked}
}

// closure expands roots to themselves plus every descendant category.
func closure(categories []models.Category, roots []string) map[string]struct{} {
	children := make(map[string][]string, len(categories))
	for _, c := range categories {
		children[c.ParentID] = append(children[c.ParentID], c.ID)
	}
	out := make(map[string]struct{}, len(roots))
	stack := append([]string(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = struct{}{}
		stack = append(stack, children[id]...)
	}
	return out
}

// Next returns the next question, or false once the session is exhausted.
func (s *Session) Next() (models.Question, bool) {
	if s.pos >= len(s.questions) {
		return models.Question{}, false
	}
	q := s.questions[s.pos]
	s.pos++
	return q, true
}

// Restart rewinds the cursor to the first question.
func (s *Session) Restart() { s.pos = 0 }

func (s *Session) Len() int { return len(s.questions) }

// Position is the number of questions already handed out by Next.
func (s *Session) Position() int { return s.pos }

func (s *Session) Empty() bool { return len(s.questions) == 0 }

// Questions returns the full ordered selection.
func (s *Session) Questions() []models.Question {
	out := make([]models.Question, len(s.questions))
	copy(out, s.questions)
	return out
}
