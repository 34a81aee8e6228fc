package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file created inside the data directory.
const FileName = "topic-trainer.db"

// Store is the SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore opens (and creates if needed) the database inside dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data directory: %w", err)
	}
	return Open(filepath.Join(dir, FileName))
}

// Open opens the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	// No foreign keys: referential integrity is enforced by the graph, and
	// attempts must outlive the questions they reference.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			correct_answer TEXT NOT NULL DEFAULT '',
			difficulty INTEGER NOT NULL,
			category_id TEXT NOT NULL,
			next_review INTEGER NOT NULL,
			interval INTEGER NOT NULL DEFAULT 0,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS question_tags (
			question_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (question_id, tag)
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL,
			date INTEGER NOT NULL,
			user_answer TEXT NOT NULL DEFAULT '',
			ai_score REAL NOT NULL,
			ai_feedback TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_question ON attempts(question_id, date);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_date ON attempts(date);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Migrations (simple check and apply)
	if !columnExists(db, "questions", "last_reviewed") {
		if _, err := db.Exec("ALTER TABLE questions ADD COLUMN last_reviewed INTEGER"); err != nil {
			return fmt.Errorf("add last_reviewed: %w", err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, tableName, colName string) bool {
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s LIMIT 0", colName, tableName))
	if err != nil {
		return false
	}
	rows.Close()
	return true
}

// Timestamps are stored as unix nanoseconds so that range queries compare
// numerically and round-trips are exact.
func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n) }

// ---- categories ----

const categoryColumns = `id, name, parent_id, created_at`

func (s *Store) LoadCategories(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY rowid`)
}

func (s *Store) ChildCategories(ctx context.Context, parentID string) ([]models.Category, error) {
	return s.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories WHERE parent_id = ? ORDER BY rowid`, parentID)
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = fromUnix(created)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ---- questions ----

const questionColumns = `id, text, correct_answer, difficulty, category_id, next_review, interval, ease_factor, created_at, last_reviewed`

func (s *Store) LoadQuestions(ctx context.Context) ([]models.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY rowid`)
}

func (s *Store) QuestionsByCategory(ctx context.Context, categoryID string) ([]models.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE category_id = ? ORDER BY rowid`, categoryID)
}

func (s *Store) QuestionsByTag(ctx context.Context, tag string) ([]models.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions
		WHERE id IN (SELECT question_id FROM question_tags WHERE tag = ?)
		ORDER BY rowid`, tag)
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...any) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	index := make(map[string]int)
	for rows.Next() {
		var q models.Question
		var next, created int64
		var last sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Text, &q.CorrectAnswer, &q.Difficulty, &q.CategoryID,
			&next, &q.Interval, &q.EaseFactor, &created, &last); err != nil {
			rows.Close()
			return nil, err
		}
		q.NextReview = fromUnix(next)
		q.CreatedAt = fromUnix(created)
		if last.Valid {
			t := fromUnix(last.Int64)
			q.LastReviewed = &t
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	// Tags for the whole result in one query instead of one per question.
	tagRows, err := s.db.QueryContext(ctx, `SELECT question_id, tag FROM question_tags ORDER BY question_id, position`)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var qid, tag string
		if err := tagRows.Scan(&qid, &tag); err != nil {
			return nil, err
		}
		if i, ok := index[qid]; ok {
			questions[i].Tags = append(questions[i].Tags, tag)
		}
	}
	return questions, tagRows.Err()
}

// Apply writes the batch in one transaction.
func (s *Store) Apply(ctx context.Context, b storage.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := applyTx(ctx, tx, b); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func applyTx(ctx context.Context, tx *sql.Tx, b storage.Batch) error {
	for _, c := range b.PutCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, parent_id, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id`,
			c.ID, c.Name, c.ParentID, toUnix(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("put category %s: %w", c.ID, err)
		}
	}

	for _, q := range b.PutQuestions {
		var last any
		if q.LastReviewed != nil {
			last = toUnix(*q.LastReviewed)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, text, correct_answer, difficulty, category_id, next_review, interval, ease_factor, created_at, last_reviewed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				correct_answer = excluded.correct_answer,
				difficulty = excluded.difficulty,
				category_id = excluded.category_id,
				next_review = excluded.next_review,
				interval = excluded.interval,
				ease_factor = excluded.ease_factor,
				last_reviewed = excluded.last_reviewed`,
			q.ID, q.Text, q.CorrectAnswer, q.Difficulty, q.CategoryID,
			toUnix(q.NextReview), q.Interval, q.EaseFactor, toUnix(q.CreatedAt), last,
		)
		if err != nil {
			return fmt.Errorf("put question %s: %w", q.ID, err)
		}

		// Full replace of the tag set.
		if _, err := tx.ExecContext(ctx, "DELETE FROM question_tags WHERE question_id = ?", q.ID); err != nil {
			return err
		}
		for i, tag := range q.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO question_tags (question_id, tag, position) VALUES (?, ?, ?)`,
				q.ID, tag, i); err != nil {
				return fmt.Errorf("link tag %s: %w", tag, err)
			}
		}
	}

	for _, id := range b.DeleteCategories {
		if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete category %s: %w", id, err)
		}
	}
	for _, id := range b.DeleteQuestions {
		if _, err := tx.ExecContext(ctx, "DELETE FROM question_tags WHERE question_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete question %s: %w", id, err)
		}
	}
	return nil
}

// ---- attempts ----

const attemptColumns = `id, question_id, date, user_answer, ai_score, ai_feedback, duration`

func (s *Store) AppendAttempt(ctx context.Context, a models.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.QuestionID, toUnix(a.Date), a.UserAnswer, a.AIScore, a.AIFeedback, a.Duration,
	)
	return err
}

func (s *Store) AllAttempts(ctx context.Context) ([]models.Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts ORDER BY date, rowid`)
}

func (s *Store) AttemptsByQuestion(ctx context.Context, questionID string) ([]models.Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE question_id = ? ORDER BY date, rowid`, questionID)
}

func (s *Store) AttemptsSince(ctx context.Context, since time.Time) ([]models.Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE date >= ? ORDER BY date, rowid`, toUnix(since))
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var date int64
		if err := rows.Scan(&a.ID, &a.QuestionID, &date, &a.UserAnswer, &a.AIScore, &a.AIFeedback, &a.Duration); err != nil {
			return nil, err
		}
		a.Date = fromUnix(date)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
