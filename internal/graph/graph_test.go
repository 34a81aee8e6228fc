package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestGraph(t *testing.T) (*Graph, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	g, err := Load(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	g.now = func() time.Time { return t0 }
	return g, store
}

func mustCategory(t *testing.T, g *Graph, name, parent string) models.Category {
	t.Helper()
	c, err := g.AddCategory(context.Background(), name, parent)
	if err != nil {
		t.Fatalf("AddCategory(%q): %v", name, err)
	}
	return c
}

func mustQuestion(t *testing.T, g *Graph, categoryID string, tags ...string) models.Question {
	t.Helper()
	q, err := g.AddQuestion(context.Background(), models.Question{
		Text: "What is a goroutine?", CorrectAnswer: "A lightweight thread", Difficulty: 2,
		Tags: tags, CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	return q
}

func TestAddCategory(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	root := mustCategory(t, g, "  Go  ", "")
	if root.Name != "Go" || root.ParentID != "" || !root.CreatedAt.Equal(t0) {
		t.Errorf("root = %+v", root)
	}
	child := mustCategory(t, g, "Concurrency", root.ID)
	if child.ParentID != root.ID {
		t.Errorf("ParentID = %q, want %q", child.ParentID, root.ID)
	}

	var ve *models.ValidationError
	if _, err := g.AddCategory(ctx, "   ", ""); !errors.As(err, &ve) {
		t.Errorf("blank name: err = %v, want ValidationError", err)
	}
	var nf *models.NotFoundError
	if _, err := g.AddCategory(ctx, "X", "missing"); !errors.As(err, &nf) {
		t.Errorf("missing parent: err = %v, want NotFoundError", err)
	}
	if n := len(g.Categories()); n != 2 {
		t.Errorf("len(Categories) = %d, want 2", n)
	}
}

func TestRenameCategory(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	c := mustCategory(t, g, "Go", "")

	if _, err := g.RenameCategory(ctx, c.ID, "Golang"); err != nil {
		t.Fatalf("RenameCategory: %v", err)
	}
	got, _ := g.Category(c.ID)
	if got.Name != "Golang" {
		t.Errorf("Name = %q, want Golang", got.Name)
	}
	stored, _ := store.LoadCategories(ctx)
	if stored[0].Name != "Golang" {
		t.Errorf("stored Name = %q, want Golang", stored[0].Name)
	}
	if _, err := g.RenameCategory(ctx, "missing", "x"); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("rename missing: err = %v", err)
	}
}

func TestMoveCategory_RejectsCycles(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	b := mustCategory(t, g, "B", a.ID)
	c := mustCategory(t, g, "C", b.ID)

	tests := []struct {
		name   string
		id     string
		parent string
	}{
		{"self", a.ID, a.ID},
		{"child", a.ID, b.ID},
		{"grandchild", a.ID, c.ID},
		{"middle under leaf", b.ID, c.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.MoveCategory(ctx, tt.id, tt.parent)
			var ce *models.CycleError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want CycleError", err)
			}
			if ce.ID != tt.id || ce.ParentID != tt.parent {
				t.Errorf("CycleError = %+v", ce)
			}
		})
	}

	// Nothing changed, in memory or in the store.
	want := map[string]string{a.ID: "", b.ID: a.ID, c.ID: b.ID}
	for _, cat := range g.Categories() {
		if cat.ParentID != want[cat.ID] {
			t.Errorf("%s parent = %q, want %q", cat.Name, cat.ParentID, want[cat.ID])
		}
	}
	stored, _ := store.LoadCategories(ctx)
	for _, cat := range stored {
		if cat.ParentID != want[cat.ID] {
			t.Errorf("stored %s parent = %q, want %q", cat.Name, cat.ParentID, want[cat.ID])
		}
	}
}

func TestMoveCategory(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	b := mustCategory(t, g, "B", a.ID)
	c := mustCategory(t, g, "C", "")

	moved, err := g.MoveCategory(ctx, c.ID, b.ID)
	if err != nil {
		t.Fatalf("MoveCategory: %v", err)
	}
	if moved.ParentID != b.ID {
		t.Errorf("ParentID = %q, want %q", moved.ParentID, b.ID)
	}
	desc, _ := g.Descendants(a.ID)
	if len(desc) != 2 || desc[0] != b.ID || desc[1] != c.ID {
		t.Errorf("Descendants(A) = %v", desc)
	}

	// Back to root.
	if _, err := g.MoveCategory(ctx, c.ID, ""); err != nil {
		t.Fatalf("MoveCategory to root: %v", err)
	}
	if got, _ := g.Category(c.ID); got.ParentID != "" {
		t.Errorf("ParentID = %q, want root", got.ParentID)
	}

	if _, err := g.MoveCategory(ctx, c.ID, "missing"); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("move under missing parent: err = %v", err)
	}
}

// Random moves never leave a cycle behind, whatever succeeds or fails.
func TestMoveCategory_RandomMovesStayAcyclic(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, mustCategory(t, g, fmt.Sprintf("C%d", i), "").ID)
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 300; step++ {
		id := ids[rng.Intn(len(ids))]
		parent := ""
		if k := rng.Intn(len(ids) + 1); k < len(ids) {
			parent = ids[k]
		}
		_, err := g.MoveCategory(ctx, id, parent)
		var ce *models.CycleError
		if err != nil && !errors.As(err, &ce) {
			t.Fatalf("step %d: unexpected error %v", step, err)
		}

		for _, start := range ids {
			seen := map[string]bool{}
			for cur := start; cur != ""; {
				if seen[cur] {
					t.Fatalf("step %d: cycle through %s", step, cur)
				}
				seen[cur] = true
				c, _ := g.Category(cur)
				cur = c.ParentID
			}
		}
	}
}

func TestRemoveCategory_Cascades(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	a1 := mustCategory(t, g, "A1", a.ID)
	a1a := mustCategory(t, g, "A1a", a1.ID)
	other := mustCategory(t, g, "Other", "")
	q1 := mustQuestion(t, g, a1a.ID)
	q2 := mustQuestion(t, g, a.ID)
	keep := mustQuestion(t, g, other.ID)

	plan, err := g.RemovalPlan(a1.ID)
	if err != nil {
		t.Fatalf("RemovalPlan: %v", err)
	}
	if len(plan.CategoryIDs) != 2 || len(plan.QuestionIDs) != 1 || plan.QuestionIDs[0] != q1.ID {
		t.Errorf("RemovalPlan(A1) = %+v", plan)
	}

	plan, err = g.RemoveCategory(ctx, a.ID)
	if err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if len(plan.CategoryIDs) != 3 || len(plan.QuestionIDs) != 2 {
		t.Errorf("plan = %+v", plan)
	}

	cats := g.Categories()
	if len(cats) != 1 || cats[0].ID != other.ID {
		t.Errorf("Categories = %v", cats)
	}
	qs := g.Questions()
	if len(qs) != 1 || qs[0].ID != keep.ID {
		t.Errorf("Questions = %v", qs)
	}
	if _, err := g.Question(q2.ID); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("removed question still present: %v", err)
	}

	stored, _ := store.LoadQuestions(ctx)
	if len(stored) != 1 || stored[0].ID != keep.ID {
		t.Errorf("stored questions = %v", stored)
	}
	if _, err := g.RemoveCategory(ctx, a.ID); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("second remove: err = %v", err)
	}
}

func TestAddQuestion(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()
	c := mustCategory(t, g, "Go", "")

	q := mustQuestion(t, g, c.ID, " x ", "y", "x")
	if q.Interval != 0 || q.EaseFactor != 2.5 || !q.NextReview.Equal(t0) || !q.CreatedAt.Equal(t0) {
		t.Errorf("scheduling state = interval %d, ef %v, next %v", q.Interval, q.EaseFactor, q.NextReview)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "x" || q.Tags[1] != "y" {
		t.Errorf("Tags = %v, want [x y]", q.Tags)
	}

	tests := []struct {
		name string
		q    models.Question
		code string
	}{
		{"difficulty too high", models.Question{Text: "t", Difficulty: 6, CategoryID: c.ID}, "VALIDATION_ERROR"},
		{"difficulty zero", models.Question{Text: "t", Difficulty: 0, CategoryID: c.ID}, "VALIDATION_ERROR"},
		{"empty text", models.Question{Text: " ", Difficulty: 1, CategoryID: c.ID}, "VALIDATION_ERROR"},
		{"bad tag", models.Question{Text: "t", Difficulty: 1, CategoryID: c.ID, Tags: []string{"a,b"}}, "VALIDATION_ERROR"},
		{"missing category", models.Question{Text: "t", Difficulty: 1, CategoryID: "nope"}, "NOT_FOUND"},
		{"duplicate id", models.Question{ID: q.ID, Text: "t", Difficulty: 1, CategoryID: c.ID}, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddQuestion(ctx, tt.q)
			if got := models.ErrorCode(err); got != tt.code {
				t.Errorf("code = %s (%v), want %s", got, err, tt.code)
			}
		})
	}
	if n := len(g.Questions()); n != 1 {
		t.Errorf("len(Questions) = %d, want 1", n)
	}
}

func TestUpdateQuestion(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	b := mustCategory(t, g, "B", "")
	q := mustQuestion(t, g, a.ID)

	g.now = func() time.Time { return t0.Add(time.Hour) }
	q.CategoryID = b.ID
	q.Difficulty = 4
	q.CreatedAt = time.Time{}
	got, err := g.UpdateQuestion(ctx, q)
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if got.CategoryID != b.ID || got.Difficulty != 4 || !got.CreatedAt.Equal(t0) {
		t.Errorf("updated = %+v", got)
	}
	inB, _ := g.QuestionsIn(b.ID)
	if len(inB) != 1 {
		t.Errorf("QuestionsIn(B) = %d, want 1", len(inB))
	}
	inA, _ := g.QuestionsIn(a.ID)
	if len(inA) != 0 {
		t.Errorf("QuestionsIn(A) = %d, want 0", len(inA))
	}
	stored, _ := store.QuestionsByCategory(ctx, b.ID)
	if len(stored) != 1 {
		t.Errorf("store QuestionsByCategory(B) = %d, want 1", len(stored))
	}

	q.CategoryID = "gone"
	if _, err := g.UpdateQuestion(ctx, q); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("dangling category: err = %v", err)
	}
	q.ID = "missing"
	q.CategoryID = a.ID
	if _, err := g.UpdateQuestion(ctx, q); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("missing question: err = %v", err)
	}
}

func TestCheckQuestion(t *testing.T) {
	g, _ := newTestGraph(t)
	c := mustCategory(t, g, "Go", "")
	q := mustQuestion(t, g, c.ID)

	if err := g.CheckQuestion(q); err != nil {
		t.Errorf("valid question: %v", err)
	}
	tests := []struct {
		name   string
		modify func(*models.Question)
		code   string
	}{
		{"missing question", func(q *models.Question) { q.ID = "missing" }, "NOT_FOUND"},
		{"missing category", func(q *models.Question) { q.CategoryID = "gone" }, "NOT_FOUND"},
		{"bad difficulty", func(q *models.Question) { q.Difficulty = 0 }, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := q.Clone()
			tt.modify(&bad)
			if err := g.CheckQuestion(bad); models.ErrorCode(err) != tt.code {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRemoveQuestion(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()
	c := mustCategory(t, g, "Go", "")
	q := mustQuestion(t, g, c.ID)

	if err := g.RemoveQuestion(ctx, q.ID); err != nil {
		t.Fatalf("RemoveQuestion: %v", err)
	}
	if len(g.Questions()) != 0 {
		t.Error("question still listed")
	}
	if err := g.RemoveQuestion(ctx, q.ID); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("second remove: err = %v", err)
	}
}

// A failed commit must leave memory untouched.
func TestStorageFailureLeavesGraphUnchanged(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		op   func(g *Graph, cat models.Category, q models.Question) error
	}{
		{"add category", func(g *Graph, c models.Category, _ models.Question) error {
			_, err := g.AddCategory(ctx, "New", c.ID)
			return err
		}},
		{"rename category", func(g *Graph, c models.Category, _ models.Question) error {
			_, err := g.RenameCategory(ctx, c.ID, "Renamed")
			return err
		}},
		{"move category", func(g *Graph, c models.Category, _ models.Question) error {
			_, err := g.MoveCategory(ctx, c.ID, "")
			return err
		}},
		{"remove category", func(g *Graph, c models.Category, _ models.Question) error {
			_, err := g.RemoveCategory(ctx, c.ID)
			return err
		}},
		{"add question", func(g *Graph, c models.Category, _ models.Question) error {
			_, err := g.AddQuestion(ctx, models.Question{Text: "t", Difficulty: 1, CategoryID: c.ID})
			return err
		}},
		{"update question", func(g *Graph, _ models.Category, q models.Question) error {
			q.Interval = 40
			_, err := g.UpdateQuestion(ctx, q)
			return err
		}},
		{"remove question", func(g *Graph, _ models.Category, q models.Question) error {
			return g.RemoveQuestion(ctx, q.ID)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store := newTestGraph(t)
			root := mustCategory(t, g, "Root", "")
			c := mustCategory(t, g, "Child", root.ID)
			q := mustQuestion(t, g, c.ID, "x")
			beforeCats, beforeQs := g.Categories(), g.Questions()
			beforeTree := g.CategoryTree()

			store.FailNext(1)
			err := tt.op(g, c, q)
			var se *models.StorageError
			if !errors.As(err, &se) || !errors.Is(err, storage.ErrInjected) {
				t.Fatalf("err = %v, want StorageError wrapping ErrInjected", err)
			}

			if fmt.Sprint(g.Categories()) != fmt.Sprint(beforeCats) {
				t.Errorf("categories changed: %v -> %v", beforeCats, g.Categories())
			}
			if fmt.Sprint(g.Questions()) != fmt.Sprint(beforeQs) {
				t.Errorf("questions changed: %v -> %v", beforeQs, g.Questions())
			}
			if len(g.CategoryTree()) != len(beforeTree) {
				t.Error("tree changed")
			}
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	b := mustCategory(t, g, "B", a.ID)
	mustQuestion(t, g, b.ID, "x")

	reloaded, err := Load(ctx, store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fmt.Sprint(reloaded.Categories()) != fmt.Sprint(g.Categories()) {
		t.Errorf("categories = %v, want %v", reloaded.Categories(), g.Categories())
	}
	if fmt.Sprint(reloaded.Questions()) != fmt.Sprint(g.Questions()) {
		t.Errorf("questions = %v, want %v", reloaded.Questions(), g.Questions())
	}
}

func TestQuestionsIn_UnknownCategory(t *testing.T) {
	g, _ := newTestGraph(t)
	if _, err := g.QuestionsIn("nope"); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
	if _, err := g.Descendants("nope"); models.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("Descendants err = %v, want NOT_FOUND", err)
	}
}

func TestQuestion_ReturnsCopy(t *testing.T) {
	g, _ := newTestGraph(t)
	c := mustCategory(t, g, "Go", "")
	q := mustQuestion(t, g, c.ID, "x")

	got, _ := g.Question(q.ID)
	got.Tags[0] = "mutated"
	again, _ := g.Question(q.ID)
	if again.Tags[0] != "x" {
		t.Errorf("caller mutation leaked into graph: %v", again.Tags)
	}
}

func TestUpdateCategory_RenameAndMoveTogether(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()
	a := mustCategory(t, g, "A", "")
	b := mustCategory(t, g, "B", "")

	name, parent := "B2", a.ID
	got, err := g.UpdateCategory(ctx, b.ID, &name, &parent)
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if got.Name != "B2" || got.ParentID != a.ID {
		t.Errorf("updated = %+v", got)
	}
	stored, _ := store.ChildCategories(ctx, a.ID)
	if len(stored) != 1 || stored[0].Name != "B2" {
		t.Errorf("store children of A = %v", stored)
	}

	// A cycle rejects the rename too.
	name, parent = "A2", b.ID
	if _, err := g.UpdateCategory(ctx, a.ID, &name, &parent); models.ErrorCode(err) != "CYCLE" {
		t.Fatalf("err = %v, want CYCLE", err)
	}
	if c, _ := g.Category(a.ID); c.Name != "A" || c.ParentID != "" {
		t.Errorf("A changed after failed update: %+v", c)
	}

	// Nothing to change is a no-op.
	if _, err := g.UpdateCategory(ctx, a.ID, nil, nil); err != nil {
		t.Errorf("no-op update: %v", err)
	}
}
