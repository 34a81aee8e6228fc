package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/attempts"
	"github.com/hightemp/topic-trainer-ai/internal/config"
	"github.com/hightemp/topic-trainer-ai/internal/db"
	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/kvstore"
	"github.com/hightemp/topic-trainer-ai/internal/logger"
	"github.com/hightemp/topic-trainer-ai/internal/review"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
	"github.com/hightemp/topic-trainer-ai/internal/tools"
)

// app bundles the services every command works with.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    storage.Store
	graph    *graph.Graph
	attempts *attempts.Log
	tools    *tools.Toolbox
	gemini   *ai.Client
}

// openApp loads config, opens the configured store and loads the content
// graph. Persistent flags override config values.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store = strings.ToLower(storeFlag)
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if !verbose && cmd.Name() != "serve" {
		level = "warn"
	}
	log, err := logger.Setup(os.Stderr, level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g, err := graph.Load(ctx, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		graph:    g,
		attempts: attempts.New(store, log),
		tools:    tools.New(g, log),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		return kvstore.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.StoreMemory:
		return storage.NewMemory(), nil
	default:
		return db.NewStore(cfg.DataDir)
	}
}

func (a *app) Close() {
	if a.gemini != nil {
		a.gemini.Close()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// geminiClient connects on first use. It returns nil, nil when no API key is
// configured.
func (a *app) geminiClient(ctx context.Context) (*ai.Client, error) {
	if a.gemini != nil || !a.cfg.HasGemini() {
		return a.gemini, nil
	}
	c, err := ai.NewClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel, a.cfg.GeminiConcurrentReqs, a.log)
	if err != nil {
		return nil, err
	}
	a.gemini = c
	return c, nil
}

// evaluator returns the Gemini evaluator, or fallback when Gemini is not
// configured.
func (a *app) evaluator(ctx context.Context, fallback ai.Evaluator) (ai.Evaluator, error) {
	c, err := a.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return fallback, nil
	}
	return ai.NewGeminiEvaluator(c, a.cfg.EvaluationTimeout), nil
}

func (a *app) reviewer(eval ai.Evaluator) *review.Service {
	return review.NewService(a.graph, a.attempts, eval, a.log)
}

// agent returns nil when Gemini is not configured.
func (a *app) agent(ctx context.Context) (*ai.Agent, error) {
	c, err := a.geminiClient(ctx)
	if err != nil || c == nil {
		return nil, err
	}
	return ai.NewAgent(c, a.tools, a.cfg.AgentMaxSteps), nil
}

// mustApp opens the app or prints the failure in the CLI's register.
func mustApp(cmd *cobra.Command) *app {
	a, err := openApp(cmd)
	if err != nil {
		fmt.Println("❌ Startup error:", err)
		return nil
	}
	return a
}
