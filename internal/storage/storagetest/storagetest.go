// Package storagetest holds the behaviour every storage.Store must show.
// Each implementation runs it from its own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("CategoriesKeepInsertionOrder", func(t *testing.T) { testCategoryOrder(t, open(t)) })
	t.Run("QuestionRoundTrip", func(t *testing.T) { testQuestionRoundTrip(t, open(t)) })
	t.Run("SecondaryIndexes", func(t *testing.T) { testIndexes(t, open(t)) })
	t.Run("BatchDeletes", func(t *testing.T) { testDeletes(t, open(t)) })
	t.Run("Attempts", func(t *testing.T) { testAttempts(t, open(t)) })
	t.Run("AttemptsSinceIsExact", func(t *testing.T) { testAttemptsSinceExact(t, open(t)) })
}

func mustApply(t *testing.T, s storage.Store, b storage.Batch) {
	t.Helper()
	if err := s.Apply(context.Background(), b); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func category(id, name, parent string, offset int) models.Category {
	return models.Category{ID: id, Name: name, ParentID: parent, CreatedAt: t0.Add(time.Duration(offset) * time.Second)}
}

func question(id, cat string, tags ...string) models.Question {
	return models.Question{
		ID: id, Text: "text " + id, CorrectAnswer: "answer " + id, Difficulty: 2,
		Tags: tags, CategoryID: cat, NextReview: t0, EaseFactor: 2.5, CreatedAt: t0,
	}
}

func testCategoryOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustApply(t, s, storage.Batch{PutCategories: []models.Category{
		category("b", "B", "", 0),
		category("a", "A", "", 1),
		category("c", "C", "b", 2),
	}})
	// Updating an existing category must not move it to the end.
	renamed := category("b", "B2", "", 0)
	mustApply(t, s, storage.Batch{PutCategories: []models.Category{renamed}})

	got, err := s.LoadCategories(ctx)
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("order = %s,%s,%s, want b,a,c", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Name != "B2" {
		t.Errorf("Name = %q, want B2", got[0].Name)
	}
	if got[2].ParentID != "b" {
		t.Errorf("ParentID = %q, want b", got[2].ParentID)
	}
}

func testQuestionRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	reviewed := t0.Add(-time.Hour)
	q := question("q1", "c1", "go", "sql")
	q.Interval = 6
	q.EaseFactor = 2.36
	q.LastReviewed = &reviewed
	mustApply(t, s, storage.Batch{
		PutCategories: []models.Category{category("c1", "C1", "", 0)},
		PutQuestions:  []models.Question{q},
	})

	got, err := s.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	g := got[0]
	if g.Text != q.Text || g.CorrectAnswer != q.CorrectAnswer || g.Difficulty != 2 || g.CategoryID != "c1" {
		t.Errorf("fields = %+v", g)
	}
	if g.Interval != 6 || g.EaseFactor != 2.36 {
		t.Errorf("Interval/EaseFactor = %d/%v", g.Interval, g.EaseFactor)
	}
	if !g.NextReview.Equal(t0) {
		t.Errorf("NextReview = %v, want %v", g.NextReview, t0)
	}
	if g.LastReviewed == nil || !g.LastReviewed.Equal(reviewed) {
		t.Errorf("LastReviewed = %v, want %v", g.LastReviewed, reviewed)
	}
	if len(g.Tags) != 2 || g.Tags[0] != "go" || g.Tags[1] != "sql" {
		t.Errorf("Tags = %v, want [go sql]", g.Tags)
	}

	// Replacing the tag set drops old tags.
	q.Tags = []string{"sql"}
	mustApply(t, s, storage.Batch{PutQuestions: []models.Question{q}})
	byTag, err := s.QuestionsByTag(ctx, "go")
	if err != nil {
		t.Fatalf("QuestionsByTag: %v", err)
	}
	if len(byTag) != 0 {
		t.Errorf("QuestionsByTag(go) = %d questions, want 0", len(byTag))
	}
}

func testIndexes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustApply(t, s, storage.Batch{
		PutCategories: []models.Category{
			category("root", "Root", "", 0),
			category("k1", "K1", "root", 1),
			category("k2", "K2", "root", 2),
			category("other", "Other", "", 3),
		},
		PutQuestions: []models.Question{
			question("q1", "k1", "x"),
			question("q2", "k1", "y"),
			question("q3", "other", "x", "y"),
		},
	})

	children, err := s.ChildCategories(ctx, "root")
	if err != nil {
		t.Fatalf("ChildCategories: %v", err)
	}
	if len(children) != 2 || children[0].ID != "k1" || children[1].ID != "k2" {
		t.Errorf("ChildCategories(root) = %v", children)
	}
	roots, _ := s.ChildCategories(ctx, "")
	if len(roots) != 2 {
		t.Errorf("ChildCategories(\"\") = %d, want 2", len(roots))
	}

	inK1, err := s.QuestionsByCategory(ctx, "k1")
	if err != nil {
		t.Fatalf("QuestionsByCategory: %v", err)
	}
	if len(inK1) != 2 {
		t.Errorf("QuestionsByCategory(k1) = %d, want 2", len(inK1))
	}

	tagged, err := s.QuestionsByTag(ctx, "x")
	if err != nil {
		t.Fatalf("QuestionsByTag: %v", err)
	}
	if len(tagged) != 2 || tagged[0].ID != "q1" || tagged[1].ID != "q3" {
		t.Errorf("QuestionsByTag(x) = %v", tagged)
	}
}

func testDeletes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustApply(t, s, storage.Batch{
		PutCategories: []models.Category{category("a", "A", "", 0), category("b", "B", "a", 1)},
		PutQuestions:  []models.Question{question("q1", "b", "x"), question("q2", "a")},
	})
	mustApply(t, s, storage.Batch{
		DeleteCategories: []string{"b"},
		DeleteQuestions:  []string{"q1"},
	})

	cats, _ := s.LoadCategories(ctx)
	if len(cats) != 1 || cats[0].ID != "a" {
		t.Errorf("categories after delete = %v", cats)
	}
	qs, _ := s.LoadQuestions(ctx)
	if len(qs) != 1 || qs[0].ID != "q2" {
		t.Errorf("questions after delete = %v", qs)
	}
	tagged, _ := s.QuestionsByTag(ctx, "x")
	if len(tagged) != 0 {
		t.Errorf("deleted question still indexed by tag")
	}
}

func testAttempts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	attempts := []models.Attempt{
		{ID: "a2", QuestionID: "q1", Date: t0.Add(2 * time.Hour), UserAnswer: "x", AIScore: 7, AIFeedback: "ok", Duration: 30},
		{ID: "a1", QuestionID: "q1", Date: t0, UserAnswer: "y", AIScore: 3.5, Duration: 12},
		{ID: "a3", QuestionID: "gone", Date: t0.Add(48 * time.Hour), AIScore: 10, Duration: 5},
	}
	for _, a := range attempts {
		if err := s.AppendAttempt(ctx, a); err != nil {
			t.Fatalf("AppendAttempt: %v", err)
		}
	}

	all, err := s.AllAttempts(ctx)
	if err != nil {
		t.Fatalf("AllAttempts: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a1" || all[1].ID != "a2" || all[2].ID != "a3" {
		t.Fatalf("AllAttempts order = %v", all)
	}
	if all[1].AIScore != 7 || all[1].AIFeedback != "ok" || all[1].Duration != 30 || all[1].UserAnswer != "x" {
		t.Errorf("attempt fields = %+v", all[1])
	}

	byQ, _ := s.AttemptsByQuestion(ctx, "q1")
	if len(byQ) != 2 {
		t.Errorf("AttemptsByQuestion(q1) = %d, want 2", len(byQ))
	}
	since, _ := s.AttemptsSince(ctx, t0.Add(time.Hour))
	if len(since) != 2 || since[0].ID != "a2" {
		t.Errorf("AttemptsSince = %v", since)
	}
}

func testAttemptsSinceExact(t *testing.T, s storage.Store) {
	ctx := context.Background()
	since := t0.Add(time.Hour + 700*time.Microsecond)
	attempts := []models.Attempt{
		{ID: "early", QuestionID: "q1", Date: since.Add(-time.Millisecond)},
		{ID: "same-ms", QuestionID: "q1", Date: since.Add(-400 * time.Microsecond)},
		{ID: "exact", QuestionID: "q1", Date: since},
		{ID: "late", QuestionID: "q1", Date: since.Add(time.Microsecond)},
	}
	for _, a := range attempts {
		if err := s.AppendAttempt(ctx, a); err != nil {
			t.Fatalf("AppendAttempt: %v", err)
		}
	}

	got, err := s.AttemptsSince(ctx, since)
	if err != nil {
		t.Fatalf("AttemptsSince: %v", err)
	}
	if len(got) != 2 || got[0].ID != "exact" || got[1].ID != "late" {
		t.Errorf("AttemptsSince = %v, want [exact late]", got)
	}
}
