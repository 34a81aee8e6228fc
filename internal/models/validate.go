package models

import (
	"math"
	"strings"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
	MinEaseFactor = 1.3
	MaxTagLength  = 64
	MaxScore      = 10
)

// NormalizeTags trims, de-duplicates and validates a tag list, keeping the
// first-seen order.
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		t := strings.TrimSpace(raw)
		if t == "" {
			return nil, &ValidationError{Field: "tags", Message: "tag must not be empty"}
		}
		if len(t) > MaxTagLength {
			return nil, &ValidationError{Field: "tags", Message: "tag " + string([]rune(t)[:16]) + "... is too long"}
		}
		if strings.ContainsAny(t, ",\n\t") {
			return nil, &ValidationError{Field: "tags", Message: "tag " + t + " contains a separator"}
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ParseTagList splits a comma-separated flag value. Blank entries are dropped.
func ParseTagList(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ValidateScore checks an external correctness score.
func ValidateScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > MaxScore {
		return &ValidationError{Field: "score", Message: "must be between 0 and 10"}
	}
	return nil
}

// Validate checks the field invariants of a question. It does not check
// that the category exists.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{Field: "text", Message: "must not be empty"}
	}
	if q.Difficulty < MinDifficulty || q.Difficulty > MaxDifficulty {
		return &ValidationError{Field: "difficulty", Message: "must be between 1 and 5"}
	}
	if q.CategoryID == "" {
		return &ValidationError{Field: "category_id", Message: "is required"}
	}
	if q.Interval < 0 {
		return &ValidationError{Field: "interval", Message: "must not be negative"}
	}
	if math.IsNaN(q.EaseFactor) || q.EaseFactor < MinEaseFactor {
		return &ValidationError{Field: "ease_factor", Message: "must be at least 1.3"}
	}
	tags, err := NormalizeTags(q.Tags)
	if err != nil {
		return err
	}
	q.Tags = tags
	return nil
}
