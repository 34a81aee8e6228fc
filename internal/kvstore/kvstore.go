// Package kvstore implements storage.Store on top of Redis. Records are JSON
// values in hashes; order and secondary indexes are sorted sets and sets.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

const DefaultPrefix = "topic-trainer"

// maxWatchRetries bounds optimistic-lock retries in Apply.
const maxWatchRetries = 5

type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ storage.Store = (*Store)(nil)

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) categoriesKey() string     { return s.key("categories") }
func (s *Store) categoryOrderKey() string  { return s.key("categories", "order") }
func (s *Store) questionsKey() string      { return s.key("questions") }
func (s *Store) questionOrderKey() string  { return s.key("questions", "order") }
func (s *Store) attemptsKey() string       { return s.key("attempts") }
func (s *Store) attemptsByDateKey() string { return s.key("attempts", "by_date") }
func (s *Store) seqKey() string            { return s.key("seq") }

func (s *Store) childrenKey(parent string) string {
	if parent == "" {
		parent = "_root"
	}
	return s.key("children", parent)
}

func (s *Store) categoryQuestionsKey(id string) string {
	return s.key("category", id, "questions")
}

func (s *Store) tagQuestionsKey(tag string) string {
	return s.key("tag", tag, "questions")
}

func (s *Store) questionAttemptsKey(id string) string {
	return s.key("question", id, "attempts")
}

// ---- reads ----

func (s *Store) LoadCategories(ctx context.Context) ([]models.Category, error) {
	ids, err := s.rdb.ZRange(ctx, s.categoryOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return getRecords[models.Category](ctx, s.rdb, s.categoriesKey(), ids)
}

func (s *Store) LoadQuestions(ctx context.Context) ([]models.Question, error) {
	ids, err := s.rdb.ZRange(ctx, s.questionOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return getRecords[models.Question](ctx, s.rdb, s.questionsKey(), ids)
}

func (s *Store) ChildCategories(ctx context.Context, parentID string) ([]models.Category, error) {
	ids, err := s.orderedMembers(ctx, s.childrenKey(parentID), s.categoryOrderKey())
	if err != nil {
		return nil, err
	}
	return getRecords[models.Category](ctx, s.rdb, s.categoriesKey(), ids)
}

func (s *Store) QuestionsByCategory(ctx context.Context, categoryID string) ([]models.Question, error) {
	ids, err := s.orderedMembers(ctx, s.categoryQuestionsKey(categoryID), s.questionOrderKey())
	if err != nil {
		return nil, err
	}
	return getRecords[models.Question](ctx, s.rdb, s.questionsKey(), ids)
}

func (s *Store) QuestionsByTag(ctx context.Context, tag string) ([]models.Question, error) {
	ids, err := s.orderedMembers(ctx, s.tagQuestionsKey(tag), s.questionOrderKey())
	if err != nil {
		return nil, err
	}
	return getRecords[models.Question](ctx, s.rdb, s.questionsKey(), ids)
}

// orderedMembers returns the members of setKey sorted by their score in orderKey.
func (s *Store) orderedMembers(ctx context.Context, setKey, orderKey string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	scores, err := s.rdb.ZMScore(ctx, orderKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	rank := make(map[string]float64, len(ids))
	for i, id := range ids {
		rank[id] = scores[i]
	}
	sort.Slice(ids, func(i, j int) bool { return rank[ids[i]] < rank[ids[j]] })
	return ids, nil
}

type hashGetter interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

func getRecords[T any](ctx context.Context, c hashGetter, hashKey string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := c.HMGet(ctx, hashKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // index points at a missing record
		}
		var rec T
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", hashKey, ids[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ---- writes ----

// Apply commits the batch in a MULTI/EXEC block guarded by WATCH on the
// record hashes, retrying when a concurrent writer touched them.
func (s *Store) Apply(ctx context.Context, b storage.Batch) error {
	if b.Empty() {
		return nil
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			return s.applyTx(ctx, tx, b)
		}, s.categoriesKey(), s.questionsKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("apply batch: %w", redis.TxFailedErr)
}

func (s *Store) applyTx(ctx context.Context, tx *redis.Tx, b storage.Batch) error {
	catIDs := make([]string, 0, len(b.PutCategories)+len(b.DeleteCategories))
	for _, c := range b.PutCategories {
		catIDs = append(catIDs, c.ID)
	}
	catIDs = append(catIDs, b.DeleteCategories...)
	oldCats, err := recordMap[models.Category](ctx, tx, s.categoriesKey(), catIDs, func(c models.Category) string { return c.ID })
	if err != nil {
		return err
	}

	qIDs := make([]string, 0, len(b.PutQuestions)+len(b.DeleteQuestions))
	for _, q := range b.PutQuestions {
		qIDs = append(qIDs, q.ID)
	}
	qIDs = append(qIDs, b.DeleteQuestions...)
	oldQs, err := recordMap[models.Question](ctx, tx, s.questionsKey(), qIDs, func(q models.Question) string { return q.ID })
	if err != nil {
		return err
	}

	// Reserve order positions for new records.
	fresh := 0
	for _, c := range b.PutCategories {
		if _, ok := oldCats[c.ID]; !ok {
			fresh++
		}
	}
	for _, q := range b.PutQuestions {
		if _, ok := oldQs[q.ID]; !ok {
			fresh++
		}
	}
	var seq int64
	if fresh > 0 {
		top, err := tx.IncrBy(ctx, s.seqKey(), int64(fresh)).Result()
		if err != nil {
			return err
		}
		seq = top - int64(fresh)
	}
	nextSeq := func() float64 {
		seq++
		return float64(seq)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range b.PutCategories {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, s.categoriesKey(), c.ID, data)
			if old, ok := oldCats[c.ID]; ok {
				pipe.SRem(ctx, s.childrenKey(old.ParentID), c.ID)
			} else {
				pipe.ZAdd(ctx, s.categoryOrderKey(), redis.Z{Score: nextSeq(), Member: c.ID})
			}
			pipe.SAdd(ctx, s.childrenKey(c.ParentID), c.ID)
		}

		for _, q := range b.PutQuestions {
			data, err := json.Marshal(q)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, s.questionsKey(), q.ID, data)
			if old, ok := oldQs[q.ID]; ok {
				s.unindexQuestion(ctx, pipe, old)
			} else {
				pipe.ZAdd(ctx, s.questionOrderKey(), redis.Z{Score: nextSeq(), Member: q.ID})
			}
			pipe.SAdd(ctx, s.categoryQuestionsKey(q.CategoryID), q.ID)
			for _, tag := range q.Tags {
				pipe.SAdd(ctx, s.tagQuestionsKey(tag), q.ID)
			}
		}

		for _, id := range b.DeleteCategories {
			if old, ok := oldCats[id]; ok {
				pipe.SRem(ctx, s.childrenKey(old.ParentID), id)
			}
			pipe.HDel(ctx, s.categoriesKey(), id)
			pipe.ZRem(ctx, s.categoryOrderKey(), id)
		}
		for _, id := range b.DeleteQuestions {
			if old, ok := oldQs[id]; ok {
				s.unindexQuestion(ctx, pipe, old)
			}
			pipe.HDel(ctx, s.questionsKey(), id)
			pipe.ZRem(ctx, s.questionOrderKey(), id)
		}
		return nil
	})
	return err
}

func (s *Store) unindexQuestion(ctx context.Context, pipe redis.Pipeliner, q models.Question) {
	pipe.SRem(ctx, s.categoryQuestionsKey(q.CategoryID), q.ID)
	for _, tag := range q.Tags {
		pipe.SRem(ctx, s.tagQuestionsKey(tag), q.ID)
	}
}

func recordMap[T any](ctx context.Context, c hashGetter, hashKey string, ids []string, idOf func(T) string) (map[string]T, error) {
	recs, err := getRecords[T](ctx, c, hashKey, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(recs))
	for _, r := range recs {
		out[idOf(r)] = r
	}
	return out, nil
}

// ---- attempts ----

func (s *Store) AppendAttempt(ctx context.Context, a models.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	score := float64(a.Date.UnixMilli())
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.attemptsKey(), a.ID, data)
		pipe.ZAdd(ctx, s.attemptsByDateKey(), redis.Z{Score: score, Member: a.ID})
		pipe.ZAdd(ctx, s.questionAttemptsKey(a.QuestionID), redis.Z{Score: score, Member: a.ID})
		return nil
	})
	return err
}

func (s *Store) AllAttempts(ctx context.Context) ([]models.Attempt, error) {
	ids, err := s.rdb.ZRange(ctx, s.attemptsByDateKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return getRecords[models.Attempt](ctx, s.rdb, s.attemptsKey(), ids)
}

func (s *Store) AttemptsByQuestion(ctx context.Context, questionID string) ([]models.Attempt, error) {
	ids, err := s.rdb.ZRange(ctx, s.questionAttemptsKey(questionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return getRecords[models.Attempt](ctx, s.rdb, s.attemptsKey(), ids)
}

// AttemptsSince narrows by the millisecond index, then drops attempts that
// share since's millisecond but fall before it.
func (s *Store) AttemptsSince(ctx context.Context, since time.Time) ([]models.Attempt, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.attemptsByDateKey(), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Truncate(time.Millisecond).UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	recs, err := getRecords[models.Attempt](ctx, s.rdb, s.attemptsKey(), ids)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, a := range recs {
		if !a.Date.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}
