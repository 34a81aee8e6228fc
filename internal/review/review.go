// Package review runs one answered question through evaluation, scheduling
// and persistence.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/algorithm"
	"github.com/hightemp/topic-trainer-ai/internal/attempts"
	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// ErrNoEvaluator is returned by Answer when the service has no evaluator.
var ErrNoEvaluator = errors.New("no evaluator configured")

type Service struct {
	graph    *graph.Graph
	attempts *attempts.Log
	eval     ai.Evaluator
	now      func() time.Time
	log      *slog.Logger
}

// Result describes an answered question. When Cancelled is set nothing was
// written and the other fields are zero.
type Result struct {
	Cancelled  bool              `json:"cancelled"`
	Evaluation models.Evaluation `json:"evaluation"`
	Attempt    models.Attempt    `json:"attempt"`
	Previous   models.Question   `json:"-"`
	Question   models.Question   `json:"question"`
}

func NewService(g *graph.Graph, log *attempts.Log, eval ai.Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		graph:    g,
		attempts: log,
		eval:     eval,
		now:      time.Now,
		log:      logger.With("component", "review"),
	}
}

// Answer grades userAnswer with the evaluator and records the outcome.
// A cancelled evaluation is reported through Result.Cancelled, not as an
// error, and leaves the question and the attempt log untouched.
func (s *Service) Answer(ctx context.Context, questionID, userAnswer string, duration int) (Result, error) {
	if s.eval == nil {
		return Result{}, ErrNoEvaluator
	}
	q, err := s.graph.Question(questionID)
	if err != nil {
		return Result{}, err
	}

	ev, err := s.eval.Evaluate(ctx, q.Text, q.CorrectAnswer, userAnswer)
	if errors.Is(err, models.ErrEvaluationCancelled) || (err == nil && ctx.Err() != nil) {
		s.log.Info("evaluation cancelled", "question_id", questionID)
		return Result{Cancelled: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("evaluate answer: %w", err)
	}
	return s.Submit(ctx, questionID, userAnswer, duration, ev)
}

// CanEvaluate reports whether Answer has an evaluator to call.
func (s *Service) CanEvaluate() bool { return s.eval != nil }

// Submit records an answer whose evaluation is already known, for example a
// self-rating. The rescheduled question is checked before anything is
// written. The attempt is appended before the question is stored; if that
// store fails the returned Result still carries the attempt.
func (s *Service) Submit(ctx context.Context, questionID, userAnswer string, duration int, ev models.Evaluation) (Result, error) {
	if duration < 0 {
		return Result{}, &models.ValidationError{Field: "duration", Message: "must not be negative"}
	}
	q, err := s.graph.Question(questionID)
	if err != nil {
		return Result{}, err
	}
	now := s.now()
	scheduled, err := algorithm.Schedule(q, ev.Score, now)
	if err != nil {
		return Result{}, err
	}
	if err := s.graph.CheckQuestion(scheduled); err != nil {
		return Result{}, err
	}

	res := Result{Evaluation: ev, Previous: q}
	res.Attempt, err = s.attempts.Record(ctx, models.Attempt{
		QuestionID: q.ID,
		Date:       now,
		UserAnswer: userAnswer,
		AIScore:    ev.Score,
		AIFeedback: ev.Feedback,
		Duration:   duration,
	})
	if err != nil {
		return Result{}, err
	}

	res.Question, err = s.graph.UpdateQuestion(ctx, scheduled)
	if err != nil {
		s.log.Error("attempt recorded but question not rescheduled", "question_id", q.ID, "error", err)
		return res, err
	}
	s.log.Info("question reviewed", "question_id", q.ID, "score", ev.Score,
		"interval", res.Question.Interval, "ease_factor", res.Question.EaseFactor)
	return res, nil
}
