package models

import "time"

// Category is a node of the category forest. An empty ParentID marks a root.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryNode is the materialized tree view of a Category.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children,omitempty"`
}

// Question represents a single review item attached to one category.
type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	CorrectAnswer string     `json:"correct_answer"`
	Difficulty    int        `json:"difficulty"` // 1-5
	Tags          []string   `json:"tags,omitempty"`
	CategoryID    string     `json:"category_id"`
	NextReview    time.Time  `json:"next_review"`
	Interval      int        `json:"interval"`    // Days until next review
	EaseFactor    float64    `json:"ease_factor"` // SM-2 multiplier
	CreatedAt     time.Time  `json:"created_at"`
	LastReviewed  *time.Time `json:"last_reviewed,omitempty"`
}

// HasAnyTag reports whether the question carries at least one of the tags.
func (q Question) HasAnyTag(tags map[string]struct{}) bool {
	for _, t := range q.Tags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with q.
func (q Question) Clone() Question {
	out := q
	if q.Tags != nil {
		out.Tags = append([]string(nil), q.Tags...)
	}
	if q.LastReviewed != nil {
		v := *q.LastReviewed
		out.LastReviewed = &v
	}
	return out
}

// Attempt represents a single answered review. Attempts are never mutated.
type Attempt struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Date       time.Time `json:"date"`
	UserAnswer string    `json:"user_answer"`
	AIScore    float64   `json:"ai_score"` // 0-10
	AIFeedback string    `json:"ai_feedback"`
	Duration   int       `json:"duration"` // Seconds
}

// Evaluation is the outcome of grading a user's answer.
type Evaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// ChatMessage represents a single message in an agent conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}
