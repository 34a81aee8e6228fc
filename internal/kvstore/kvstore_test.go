package kvstore

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
	"github.com/hightemp/topic-trainer-ai/internal/storage/storagetest"
)

const testRedisEnv = "TOPIC_TRAINER_TEST_REDIS_URL"

// newTestStore opens a store under a throwaway prefix and removes its keys
// when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv(testRedisEnv)
	if url == "" {
		t.Skipf("%s not set", testRedisEnv)
	}
	prefix := "topic-trainer-test:" + uuid.NewString()
	s, err := New(context.Background(), url, prefix)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		iter := s.rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
		for iter.Next(ctx) {
			s.rdb.Del(ctx, iter.Val())
		}
		s.Close()
	})
	return s
}

func TestRedisStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestApply_MoveReindexesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.Apply(ctx, storage.Batch{PutCategories: []models.Category{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C", ParentID: "a"},
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(ctx, storage.Batch{PutCategories: []models.Category{{ID: "c", Name: "C", ParentID: "b"}}}); err != nil {
		t.Fatalf("move: %v", err)
	}

	underA, _ := s.ChildCategories(ctx, "a")
	if len(underA) != 0 {
		t.Errorf("a still lists %d children", len(underA))
	}
	underB, _ := s.ChildCategories(ctx, "b")
	if len(underB) != 1 || underB[0].ID != "c" {
		t.Errorf("ChildCategories(b) = %v", underB)
	}
}

func TestKeyLayout(t *testing.T) {
	s := &Store{prefix: "p"}
	cases := []struct{ got, want string }{
		{s.categoriesKey(), "p:categories"},
		{s.childrenKey(""), "p:children:_root"},
		{s.childrenKey("x"), "p:children:x"},
		{s.tagQuestionsKey("go"), "p:tag:go:questions"},
		{s.questionAttemptsKey("q1"), "p:question:q1:attempts"},
		{s.categoryQuestionsKey("c1"), "p:category:c1:questions"},
		{s.attemptsByDateKey(), "p:attempts:by_date"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("key = %q, want %q", c.got, c.want)
		}
		if !strings.HasPrefix(c.got, "p:") {
			t.Errorf("key %q escapes prefix", c.got)
		}
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(context.Background(), "not a url", ""); err == nil {
		t.Error("New with malformed URL should fail")
	}
}
