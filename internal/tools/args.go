package tools

import (
	"math"
	"strings"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// args wraps decoded JSON arguments. Numbers arrive as float64.
type args map[string]any

func (a args) requiredString(key string) (string, error) {
	v, ok, err := a.optionalString(key)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", &models.ValidationError{Field: key, Message: "is required"}
	}
	return v, nil
}

func (a args) optionalString(key string) (string, bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, &models.ValidationError{Field: key, Message: "must be a string"}
	}
	return s, true, nil
}

func (a args) optionalInt(key string) (int, bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		return v, true, nil
	case int32:
		return int(v), true, nil
	case int64:
		return int(v), true, nil
	default:
		return 0, false, &models.ValidationError{Field: key, Message: "must be an integer"}
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false, &models.ValidationError{Field: key, Message: "must be an integer"}
	}
	return int(f), true, nil
}

// optionalStrings accepts a JSON array of strings or a comma-separated string.
func (a args) optionalStrings(key string) ([]string, bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return models.ParseTagList(v), true, nil
	case []string:
		return v, true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false, &models.ValidationError{Field: key, Message: "must be a list of strings"}
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, false, &models.ValidationError{Field: key, Message: "must be a list of strings"}
	}
}

// Result maps only hold values a protobuf Struct can carry: string, float64,
// int, bool, []any and map[string]any.

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func categoryMap(c models.Category) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"parent_id":  c.ParentID,
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
}

func questionMap(q models.Question) map[string]any {
	m := map[string]any{
		"id":             q.ID,
		"text":           q.Text,
		"correct_answer": q.CorrectAnswer,
		"difficulty":     q.Difficulty,
		"tags":           anySlice(q.Tags),
		"category_id":    q.CategoryID,
		"next_review":    q.NextReview.Format(time.RFC3339),
		"interval":       q.Interval,
		"ease_factor":    q.EaseFactor,
	}
	if q.LastReviewed != nil {
		m["last_reviewed"] = q.LastReviewed.Format(time.RFC3339)
	}
	return m
}
