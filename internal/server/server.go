// Package server exposes the trainer over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/attempts"
	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/review"
	"github.com/hightemp/topic-trainer-ai/internal/stats"
	"github.com/hightemp/topic-trainer-ai/internal/tools"
)

// Chatter answers a chat turn; *ai.Agent satisfies it.
type Chatter interface {
	Chat(ctx context.Context, history []models.ChatMessage, message string) (ai.Reply, error)
}

// Deps are the services the handlers call. Agent may be nil.
type Deps struct {
	Graph    *graph.Graph
	Tools    *tools.Toolbox
	Review   *review.Service
	Attempts *attempts.Log
	Agent    Chatter
}

type Options struct {
	CORSOrigins []string
	WindowDays  int
}

type Server struct {
	graph    *graph.Graph
	tools    *tools.Toolbox
	review   *review.Service
	attempts *attempts.Log
	stats    *stats.Aggregator
	agent    Chatter

	corsOrigins []string
	windowDays  int
	now         func() time.Time
	log         *slog.Logger
}

func New(d Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = 30
	}
	return &Server{
		graph:       d.Graph,
		tools:       d.Tools,
		review:      d.Review,
		attempts:    d.Attempts,
		stats:       stats.NewAggregator(d.Graph, d.Attempts),
		agent:       d.Agent,
		corsOrigins: opts.CORSOrigins,
		windowDays:  opts.WindowDays,
		now:         time.Now,
		log:         logger.With("component", "server"),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", s.listTools)
		r.Post("/tools/{name}", s.callTool)

		r.Get("/categories/tree", s.categoryTree)
		r.Get("/session", s.session)

		r.Route("/questions/{id}", func(r chi.Router) {
			r.Post("/answer", s.answer)
			r.Get("/attempts", s.questionAttempts)
		})

		r.Get("/stats", s.statsReport)
		r.Post("/chat", s.chat)
	})

	return cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Request-ID"},
		MaxAge:         86400,
	}).Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
