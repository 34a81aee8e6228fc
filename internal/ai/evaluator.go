package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// Evaluator grades a user's answer against the reference answer.
// Implementations return models.ErrEvaluationCancelled when ctx is cancelled.
type Evaluator interface {
	Evaluate(ctx context.Context, questionText, correctAnswer, userAnswer string) (models.Evaluation, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, questionText, correctAnswer, userAnswer string) (models.Evaluation, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, questionText, correctAnswer, userAnswer string) (models.Evaluation, error) {
	return f(ctx, questionText, correctAnswer, userAnswer)
}

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiEvaluator struct {
	client  *Client
	model   generator
	timeout time.Duration
	log     *slog.Logger
}

var _ Evaluator = (*GeminiEvaluator)(nil)

func NewGeminiEvaluator(c *Client, timeout time.Duration) *GeminiEvaluator {
	model := c.model()
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	return &GeminiEvaluator{
		client:  c,
		model:   model,
		timeout: timeout,
		log:     c.log.With("component", "evaluator"),
	}
}

func (e *GeminiEvaluator) Evaluate(ctx context.Context, questionText, correctAnswer, userAnswer string) (models.Evaluation, error) {
	if e.client != nil {
		if err := e.client.acquire(ctx); err != nil {
			return models.Evaluation{}, cancelled(ctx, err)
		}
		defer e.client.release()
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.model.GenerateContent(ctx, genai.Text(buildEvaluationPrompt(questionText, correctAnswer, userAnswer)))
	if err != nil {
		return models.Evaluation{}, cancelled(ctx, fmt.Errorf("Gemini API error: %w", err))
	}

	ev, err := parseEvaluation(extractText(resp))
	if err != nil {
		return models.Evaluation{}, err
	}
	e.log.Debug("answer evaluated", "score", ev.Score, "elapsed", time.Since(start))
	return ev, nil
}

// cancelled maps a caller cancellation onto ErrEvaluationCancelled and keeps
// every other failure, timeouts included, as is.
func cancelled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return models.ErrEvaluationCancelled
	}
	return err
}

func parseEvaluation(raw string) (models.Evaluation, error) {
	text := stripFences(raw)
	var ev models.Evaluation
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return models.Evaluation{}, fmt.Errorf("evaluation response is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &ev); err != nil {
			return models.Evaluation{}, fmt.Errorf("evaluation response is not JSON: %w", err)
		}
	}
	if err := models.ValidateScore(ev.Score); err != nil {
		return models.Evaluation{}, fmt.Errorf("evaluation response: %w", err)
	}
	ev.Feedback = strings.TrimSpace(ev.Feedback)
	return ev, nil
}

func buildEvaluationPrompt(questionText, correctAnswer, userAnswer string) string {
	var b strings.Builder
	b.WriteString("You are grading a learner's answer to a study question.\n")
	b.WriteString("Compare the learner's answer with the reference answer and judge correctness and completeness.\n")
	b.WriteString("Respond with JSON only: {\"score\": <number from 0 to 10>, \"feedback\": \"<short explanation>\"}.\n")
	b.WriteString("10 means fully correct, 7 mostly correct, 5 partially correct, 0 wrong or empty.\n\n")
	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", questionText)
	fmt.Fprintf(&b, "REFERENCE ANSWER:\n%s\n\n", correctAnswer)
	fmt.Fprintf(&b, "LEARNER ANSWER:\n%s\n", userAnswer)
	return b.String()
}
