// Package tools is the fixed set of operations an automated agent may run
// against the content graph. Arguments and results are JSON-shaped maps.
package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Param describes one tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "integer", "array"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type Spec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

type handler func(ctx context.Context, a args) (map[string]any, error)

type Toolbox struct {
	graph    *graph.Graph
	log      *slog.Logger
	handlers map[string]handler
}

func New(g *graph.Graph, logger *slog.Logger) *Toolbox {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Toolbox{graph: g, log: logger.With("component", "tools")}
	t.handlers = map[string]handler{
		"create_category": t.createCategory,
		"update_category": t.updateCategory,
		"delete_category": t.deleteCategory,
		"create_question": t.createQuestion,
		"update_question": t.updateQuestion,
		"delete_question": t.deleteQuestion,
		"list_categories": t.listCategories,
		"list_questions":  t.listQuestions,
	}
	return t
}

// Specs lists every tool in a stable order.
func (t *Toolbox) Specs() []Spec {
	return specs
}

// Invoke runs the named tool.
func (t *Toolbox) Invoke(ctx context.Context, name string, raw map[string]any) (map[string]any, error) {
	h, ok := t.handlers[name]
	if !ok {
		return nil, &models.NotFoundError{Kind: "tool", ID: name}
	}
	return h(ctx, args(raw))
}

// Call runs the named tool and folds any error into an error object, so the
// result can always be handed back to the agent.
func (t *Toolbox) Call(ctx context.Context, name string, raw map[string]any) map[string]any {
	res, err := t.Invoke(ctx, name, raw)
	if err != nil {
		t.log.Warn("tool failed", "tool", name, "error", err)
		return ErrorObject(err)
	}
	t.log.Info("tool called", "tool", name)
	return res
}

// ErrorObject renders err as {"error": {"code", "message"}}.
func ErrorObject(err error) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    models.ErrorCode(err),
			"message": err.Error(),
		},
	}
}

// ---- categories ----

func (t *Toolbox) createCategory(ctx context.Context, a args) (map[string]any, error) {
	name, err := a.requiredString("name")
	if err != nil {
		return nil, err
	}
	parent, _, err := a.optionalString("parent_id")
	if err != nil {
		return nil, err
	}
	c, err := t.graph.AddCategory(ctx, name, parent)
	if err != nil {
		return nil, err
	}
	return map[string]any{"category": categoryMap(c)}, nil
}

func (t *Toolbox) updateCategory(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.requiredString("id")
	if err != nil {
		return nil, err
	}
	var name, parent *string
	if v, ok, err := a.optionalString("name"); err != nil {
		return nil, err
	} else if ok {
		name = &v
	}
	if v, ok, err := a.optionalString("parent_id"); err != nil {
		return nil, err
	} else if ok {
		parent = &v
	}
	c, err := t.graph.UpdateCategory(ctx, id, name, parent)
	if err != nil {
		return nil, err
	}
	return map[string]any{"category": categoryMap(c)}, nil
}

func (t *Toolbox) deleteCategory(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.requiredString("id")
	if err != nil {
		return nil, err
	}
	plan, err := t.graph.RemoveCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"deleted":            true,
		"id":                 id,
		"categories_removed": len(plan.CategoryIDs),
		"questions_removed":  len(plan.QuestionIDs),
		"category_ids":       anySlice(plan.CategoryIDs),
		"question_ids":       anySlice(plan.QuestionIDs),
	}, nil
}

func (t *Toolbox) listCategories(_ context.Context, _ args) (map[string]any, error) {
	cats := t.graph.Categories()
	byID := make(map[string]models.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	out := make([]any, 0, len(cats))
	for _, c := range cats {
		m := categoryMap(c)
		m["path"] = path(byID, c)
		out = append(out, m)
	}
	return map[string]any{"categories": out, "count": len(out)}, nil
}

// path joins the names from the root down to c. It stops at a missing or
// repeated ancestor.
func path(byID map[string]models.Category, c models.Category) string {
	names := []string{c.Name}
	seen := map[string]bool{c.ID: true}
	for p := c.ParentID; p != "" && !seen[p]; {
		parent, ok := byID[p]
		if !ok {
			break
		}
		seen[p] = true
		names = append([]string{parent.Name}, names...)
		p = parent.ParentID
	}
	return strings.Join(names, " / ")
}

// ---- questions ----

func (t *Toolbox) createQuestion(ctx context.Context, a args) (map[string]any, error) {
	var q models.Question
	var err error
	if q.Text, err = a.requiredString("text"); err != nil {
		return nil, err
	}
	if q.CorrectAnswer, err = a.requiredString("correct_answer"); err != nil {
		return nil, err
	}
	if q.CategoryID, err = a.requiredString("category_id"); err != nil {
		return nil, err
	}
	difficulty, ok, err := a.optionalInt("difficulty")
	if err != nil {
		return nil, err
	}
	q.Difficulty = 3
	if ok {
		q.Difficulty = difficulty
	}
	if q.Tags, _, err = a.optionalStrings("tags"); err != nil {
		return nil, err
	}
	created, err := t.graph.AddQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"question": questionMap(created)}, nil
}

func (t *Toolbox) updateQuestion(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.requiredString("id")
	if err != nil {
		return nil, err
	}
	q, err := t.graph.Question(id)
	if err != nil {
		return nil, err
	}
	for key, dst := range map[string]*string{
		"text":           &q.Text,
		"correct_answer": &q.CorrectAnswer,
		"category_id":    &q.CategoryID,
	} {
		v, ok, err := a.optionalString(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = v
		}
	}
	if v, ok, err := a.optionalInt("difficulty"); err != nil {
		return nil, err
	} else if ok {
		q.Difficulty = v
	}
	if v, ok, err := a.optionalStrings("tags"); err != nil {
		return nil, err
	} else if ok {
		q.Tags = v
	}
	updated, err := t.graph.UpdateQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"question": questionMap(updated)}, nil
}

func (t *Toolbox) deleteQuestion(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.requiredString("id")
	if err != nil {
		return nil, err
	}
	if err := t.graph.RemoveQuestion(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "id": id}, nil
}

func (t *Toolbox) listQuestions(_ context.Context, a args) (map[string]any, error) {
	categoryID, filtered, err := a.optionalString("category_id")
	if err != nil {
		return nil, err
	}
	limit, ok, err := a.optionalInt("limit")
	if err != nil {
		return nil, err
	}
	switch {
	case !ok:
		limit = DefaultListLimit
	case limit < 1:
		return nil, &models.ValidationError{Field: "limit", Message: "must be positive"}
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	var qs []models.Question
	if filtered && categoryID != "" {
		if qs, err = t.graph.QuestionsIn(categoryID); err != nil {
			return nil, err
		}
	} else {
		qs = t.graph.Questions()
	}

	total := len(qs)
	if len(qs) > limit {
		qs = qs[:limit]
	}
	out := make([]any, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionMap(q))
	}
	return map[string]any{"questions": out, "count": len(out), "total": total}, nil
}
