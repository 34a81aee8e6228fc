package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// ErrInjected is returned by Memory when a failure was requested with FailNext.
var ErrInjected = errors.New("storage: injected failure")

// Memory is a process-local Store. Nothing survives Close.
type Memory struct {
	mu         sync.Mutex
	categories map[string]models.Category
	catOrder   []string
	questions  map[string]models.Question
	qOrder     []string
	attempts   []models.Attempt
	failNext   int
}

func NewMemory() *Memory {
	return &Memory{
		categories: make(map[string]models.Category),
		questions:  make(map[string]models.Question),
	}
}

// FailNext makes the next n writes fail with ErrInjected.
func (m *Memory) FailNext(n int) {
	m.mu.Lock()
	m.failNext = n
	m.mu.Unlock()
}

func (m *Memory) injected() bool {
	if m.failNext > 0 {
		m.failNext--
		return true
	}
	return false
}

func (m *Memory) LoadCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Category, 0, len(m.catOrder))
	for _, id := range m.catOrder {
		out = append(out, m.categories[id])
	}
	return out, nil
}

func (m *Memory) LoadQuestions(ctx context.Context) ([]models.Question, error) {
	return m.filterQuestions(func(models.Question) bool { return true }), nil
}

func (m *Memory) ChildCategories(ctx context.Context, parentID string) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, id := range m.catOrder {
		if c := m.categories[id]; c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) QuestionsByCategory(ctx context.Context, categoryID string) ([]models.Question, error) {
	return m.filterQuestions(func(q models.Question) bool { return q.CategoryID == categoryID }), nil
}

func (m *Memory) QuestionsByTag(ctx context.Context, tag string) ([]models.Question, error) {
	set := map[string]struct{}{tag: {}}
	return m.filterQuestions(func(q models.Question) bool { return q.HasAnyTag(set) }), nil
}

func (m *Memory) filterQuestions(keep func(models.Question) bool) []models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, id := range m.qOrder {
		if q := m.questions[id]; keep(q) {
			out = append(out, q.Clone())
		}
	}
	return out
}

func (m *Memory) Apply(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.injected() {
		return ErrInjected
	}
	for _, c := range b.PutCategories {
		if _, ok := m.categories[c.ID]; !ok {
			m.catOrder = append(m.catOrder, c.ID)
		}
		m.categories[c.ID] = c
	}
	for _, q := range b.PutQuestions {
		if _, ok := m.questions[q.ID]; !ok {
			m.qOrder = append(m.qOrder, q.ID)
		}
		m.questions[q.ID] = q.Clone()
	}
	for _, id := range b.DeleteCategories {
		delete(m.categories, id)
		m.catOrder = removeID(m.catOrder, id)
	}
	for _, id := range b.DeleteQuestions {
		delete(m.questions, id)
		m.qOrder = removeID(m.qOrder, id)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (m *Memory) AppendAttempt(ctx context.Context, a models.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.injected() {
		return ErrInjected
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *Memory) AllAttempts(ctx context.Context) ([]models.Attempt, error) {
	return m.filterAttempts(func(models.Attempt) bool { return true }), nil
}

func (m *Memory) AttemptsByQuestion(ctx context.Context, questionID string) ([]models.Attempt, error) {
	return m.filterAttempts(func(a models.Attempt) bool { return a.QuestionID == questionID }), nil
}

func (m *Memory) AttemptsSince(ctx context.Context, since time.Time) ([]models.Attempt, error) {
	return m.filterAttempts(func(a models.Attempt) bool { return !a.Date.Before(since) }), nil
}

func (m *Memory) filterAttempts(keep func(models.Attempt) bool) []models.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attempt
	for _, a := range m.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (m *Memory) Close() error { return nil }
