package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/review"
	"github.com/hightemp/topic-trainer-ai/internal/session"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) errorResponse {
	return errorResponse{Error: apiError{
		Code:      code,
		Message:   message,
		RequestID: chimiddleware.GetReqID(r.Context()),
	}}
}

func statusFor(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CYCLE":
		return http.StatusConflict
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := models.ErrorCode(err)
	status := statusFor(code)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "error", err,
			"request_id", chimiddleware.GetReqID(r.Context()))
	}
	writeJSON(w, status, errorResp(code, err.Error(), r))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// ---- tools ----

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.tools.Specs()})
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args := map[string]any{}
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &args) {
			return
		}
	}
	res, err := s.tools.Invoke(r.Context(), name, args)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.log.Info("tool called", "tool", name)
	writeJSON(w, http.StatusOK, res)
}

// ---- content ----

func (s *Server) categoryTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.graph.CategoryTree()})
}

// splitParam collects repeated and comma-separated query values.
func splitParam(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	sel := session.Selection{
		CategoryIDs: splitParam(r, "category"),
		Tags:        splitParam(r, "tag"),
	}
	for _, id := range sel.CategoryIDs {
		if _, err := s.graph.Category(id); err != nil {
			s.handleError(w, r, err)
			return
		}
	}
	if due := r.URL.Query().Get("due"); due != "" {
		on, err := strconv.ParseBool(due)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "due must be a boolean", r))
			return
		}
		if on {
			sel.DueBy = s.now()
		}
	}

	sess := session.Build(s.graph.Categories(), s.graph.Questions(), sel)
	questions := sess.Questions()
	if questions == nil {
		questions = []models.Question{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(questions), "questions": questions})
}

// ---- review ----

type answerRequest struct {
	UserAnswer string   `json:"user_answer"`
	Duration   int      `json:"duration"`
	Score      *float64 `json:"score,omitempty"`
	Feedback   string   `json:"feedback,omitempty"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		res review.Result
		err error
	)
	if req.Score != nil {
		res, err = s.review.Submit(r.Context(), id, req.UserAnswer, req.Duration,
			models.Evaluation{Score: *req.Score, Feedback: req.Feedback})
	} else {
		res, err = s.review.Answer(r.Context(), id, req.UserAnswer, req.Duration)
	}
	if errors.Is(err, review.ErrNoEvaluator) {
		writeJSON(w, http.StatusServiceUnavailable,
			errorResp("EVALUATOR_UNAVAILABLE", "No evaluator configured; send a score to self-rate", r))
		return
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// questionAttempts serves the history of deleted questions too. It is 404
// only when the question is unknown and nothing was ever recorded for it.
func (s *Server) questionAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	list, err := s.attempts.ByQuestion(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	_, qErr := s.graph.Question(id)
	if qErr != nil && len(list) == 0 {
		s.handleError(w, r, qErr)
		return
	}
	if list == nil {
		list = []models.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"question_id": id, "deleted": qErr != nil, "attempts": list})
}

// ---- stats ----

func (s *Server) statsReport(w http.ResponseWriter, r *http.Request) {
	window := s.windowDays
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "window must be between 1 and 365", r))
			return
		}
		window = n
	}
	rep, err := s.stats.Report(r.Context(), window, s.now())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ---- chat ----

type chatRequest struct {
	History []models.ChatMessage `json:"history"`
	Message string               `json:"message"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "Gemini is not configured", r))
		return
	}
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.agent.Chat(r.Context(), req.History, req.Message)
	if errors.Is(err, ai.ErrTooManySteps) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("TOO_MANY_STEPS", err.Error(), r))
		return
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
