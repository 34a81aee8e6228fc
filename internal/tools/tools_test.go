package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

func newTestToolbox(t *testing.T) (*Toolbox, *graph.Graph, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	g, err := graph.Load(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("graph.Load: %v", err)
	}
	return New(g, nil), g, store
}

func call(t *testing.T, tb *Toolbox, name string, args map[string]any) map[string]any {
	t.Helper()
	res := tb.Call(context.Background(), name, args)
	if e, ok := res["error"]; ok {
		t.Fatalf("%s(%v) returned error %v", name, args, e)
	}
	return res
}

func errorCode(res map[string]any) string {
	e, ok := res["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

func idOf(res map[string]any, key string) string {
	return res[key].(map[string]any)["id"].(string)
}

func TestCategoryTools(t *testing.T) {
	tb, g, _ := newTestToolbox(t)

	root := idOf(call(t, tb, "create_category", map[string]any{"name": "Go"}), "category")
	child := idOf(call(t, tb, "create_category", map[string]any{"name": "Channels", "parent_id": root}), "category")
	other := idOf(call(t, tb, "create_category", map[string]any{"name": "SQL"}), "category")

	res := call(t, tb, "update_category", map[string]any{"id": child, "name": "Chans", "parent_id": other})
	cat := res["category"].(map[string]any)
	if cat["name"] != "Chans" || cat["parent_id"] != other {
		t.Errorf("updated = %v", cat)
	}

	list := call(t, tb, "list_categories", nil)
	if list["count"] != 3 {
		t.Fatalf("count = %v, want 3", list["count"])
	}
	paths := map[string]string{}
	for _, item := range list["categories"].([]any) {
		m := item.(map[string]any)
		paths[m["id"].(string)] = m["path"].(string)
	}
	if paths[child] != "SQL / Chans" {
		t.Errorf("path = %q, want %q", paths[child], "SQL / Chans")
	}

	res = tb.Call(context.Background(), "update_category", map[string]any{"id": other, "parent_id": child})
	if errorCode(res) != "CYCLE" {
		t.Errorf("cycle move = %v", res)
	}

	call(t, tb, "create_question", map[string]any{
		"text": "What does close() do?", "correct_answer": "Signals no more sends", "category_id": child,
	})
	res = call(t, tb, "delete_category", map[string]any{"id": other})
	if res["categories_removed"] != 2 || res["questions_removed"] != 1 {
		t.Errorf("delete result = %v", res)
	}
	if len(g.Categories()) != 1 || len(g.Questions()) != 0 {
		t.Errorf("graph after delete: %d categories, %d questions", len(g.Categories()), len(g.Questions()))
	}
}

func TestQuestionTools(t *testing.T) {
	tb, g, _ := newTestToolbox(t)
	cat := idOf(call(t, tb, "create_category", map[string]any{"name": "Go"}), "category")
	cat2 := idOf(call(t, tb, "create_category", map[string]any{"name": "SQL"}), "category")

	res := call(t, tb, "create_question", map[string]any{
		"text":           "What is a slice?",
		"correct_answer": "A view over an array",
		"category_id":    cat,
		"difficulty":     float64(2),
		"tags":           []any{"basics", "memory"},
	})
	q := res["question"].(map[string]any)
	id := q["id"].(string)
	if q["difficulty"] != 2 || q["interval"] != 0 || q["ease_factor"] != 2.5 {
		t.Errorf("created = %v", q)
	}
	if tags := q["tags"].([]any); len(tags) != 2 {
		t.Errorf("tags = %v", tags)
	}

	res = call(t, tb, "update_question", map[string]any{"id": id, "difficulty": float64(4), "category_id": cat2, "tags": "a, b"})
	q = res["question"].(map[string]any)
	if q["difficulty"] != 4 || q["category_id"] != cat2 || q["text"] != "What is a slice?" {
		t.Errorf("updated = %v", q)
	}
	stored, _ := g.Question(id)
	if len(stored.Tags) != 2 || stored.Tags[0] != "a" {
		t.Errorf("stored tags = %v", stored.Tags)
	}

	res = call(t, tb, "delete_question", map[string]any{"id": id})
	if res["deleted"] != true {
		t.Errorf("delete = %v", res)
	}
	if errorCode(tb.Call(context.Background(), "delete_question", map[string]any{"id": id})) != "NOT_FOUND" {
		t.Error("second delete should be NOT_FOUND")
	}
}

func TestCreateQuestion_DefaultDifficulty(t *testing.T) {
	tb, _, _ := newTestToolbox(t)
	cat := idOf(call(t, tb, "create_category", map[string]any{"name": "Go"}), "category")
	res := call(t, tb, "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat})
	if d := res["question"].(map[string]any)["difficulty"]; d != 3 {
		t.Errorf("difficulty = %v, want 3", d)
	}
}

func TestToolErrors(t *testing.T) {
	tb, _, store := newTestToolbox(t)
	cat := idOf(call(t, tb, "create_category", map[string]any{"name": "Go"}), "category")

	tests := []struct {
		name string
		tool string
		args map[string]any
		code string
	}{
		{"unknown tool", "drop_everything", nil, "NOT_FOUND"},
		{"missing name", "create_category", map[string]any{}, "VALIDATION_ERROR"},
		{"name wrong type", "create_category", map[string]any{"name": 7.0}, "VALIDATION_ERROR"},
		{"missing parent", "create_category", map[string]any{"name": "x", "parent_id": "nope"}, "NOT_FOUND"},
		{"difficulty out of range", "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat, "difficulty": 9.0}, "VALIDATION_ERROR"},
		{"zero difficulty", "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat, "difficulty": 0.0}, "VALIDATION_ERROR"},
		{"fractional difficulty", "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat, "difficulty": 2.5}, "VALIDATION_ERROR"},
		{"bad tags", "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat, "tags": []any{1.0}}, "VALIDATION_ERROR"},
		{"dangling category", "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": "nope"}, "NOT_FOUND"},
		{"update missing question", "update_question", map[string]any{"id": "nope"}, "NOT_FOUND"},
		{"zero limit", "list_questions", map[string]any{"limit": 0.0}, "VALIDATION_ERROR"},
		{"list missing category", "list_questions", map[string]any{"category_id": "nope"}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tb.Call(context.Background(), tt.tool, tt.args)
			if got := errorCode(res); got != tt.code {
				t.Errorf("code = %q (%v), want %s", got, res, tt.code)
			}
		})
	}

	store.FailNext(1)
	res := tb.Call(context.Background(), "create_category", map[string]any{"name": "x"})
	if errorCode(res) != "STORAGE_ERROR" {
		t.Errorf("storage failure = %v", res)
	}
}

func TestListQuestions_Limit(t *testing.T) {
	tb, _, _ := newTestToolbox(t)
	a := idOf(call(t, tb, "create_category", map[string]any{"name": "A"}), "category")
	b := idOf(call(t, tb, "create_category", map[string]any{"name": "B"}), "category")
	for i := 0; i < 205; i++ {
		cat := a
		if i%5 == 0 {
			cat = b
		}
		call(t, tb, "create_question", map[string]any{"text": fmt.Sprintf("q%d", i), "correct_answer": "a", "category_id": cat})
	}

	tests := []struct {
		name  string
		args  map[string]any
		count int
		total int
	}{
		{"default limit", nil, DefaultListLimit, 205},
		{"explicit limit", map[string]any{"limit": 10.0}, 10, 205},
		{"limit capped", map[string]any{"limit": 1000.0}, MaxListLimit, 205},
		{"category filter", map[string]any{"category_id": b}, 41, 41},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, tb, "list_questions", tt.args)
			if res["count"] != tt.count || res["total"] != tt.total {
				t.Errorf("count/total = %v/%v, want %d/%d", res["count"], res["total"], tt.count, tt.total)
			}
		})
	}
}

// Results must survive a JSON round trip, which is how both the HTTP surface
// and the agent hand them on.
func TestResultsAreJSONShaped(t *testing.T) {
	tb, _, _ := newTestToolbox(t)
	cat := idOf(call(t, tb, "create_category", map[string]any{"name": "A"}), "category")
	call(t, tb, "create_question", map[string]any{"text": "q", "correct_answer": "a", "category_id": cat, "tags": []any{"x"}})

	for _, name := range []string{"list_categories", "list_questions"} {
		if _, err := json.Marshal(call(t, tb, name, nil)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestSpecsMatchHandlers(t *testing.T) {
	tb, _, _ := newTestToolbox(t)
	if len(tb.Specs()) != len(tb.handlers) {
		t.Fatalf("%d specs for %d handlers", len(tb.Specs()), len(tb.handlers))
	}
	for _, s := range tb.Specs() {
		if _, ok := tb.handlers[s.Name]; !ok {
			t.Errorf("spec %s has no handler", s.Name)
		}
	}
}
