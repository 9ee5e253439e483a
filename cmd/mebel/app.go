package main

import (
	"context"
	"fmt"

	"github.com/backend-developer-hojiakbar/mebel/internal/analysis"
	"github.com/backend-developer-hojiakbar/mebel/internal/bid"
	"github.com/backend-developer-hojiakbar/mebel/internal/config"
	"github.com/backend-developer-hojiakbar/mebel/internal/db"
	"github.com/backend-developer-hojiakbar/mebel/internal/extract"
	"github.com/backend-developer-hojiakbar/mebel/internal/fetch"
	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/knowledge"
	"github.com/backend-developer-hojiakbar/mebel/internal/normalize"
	"github.com/backend-developer-hojiakbar/mebel/internal/queries"
	"github.com/backend-developer-hojiakbar/mebel/internal/store"
	"github.com/backend-developer-hojiakbar/mebel/internal/summary"
	"github.com/backend-developer-hojiakbar/mebel/internal/supplier"
	"github.com/backend-developer-hojiakbar/mebel/internal/websearch"
)

// app wires configuration into the pipeline components shared by all
// commands. The store is nil when no database is configured.
type app struct {
	cfg       *config.Config
	pipeline  *analysis.Pipeline
	bidEngine *bid.Engine
	analyzer  *knowledge.Analyzer
	store     *store.Store
	database  *db.DB
}

// newApp builds the component graph. Commands that need history require a
// configured DATABASE_URL; everything else runs without one.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	gen := genai.NewClient(cfg.GeminiAPIKey)
	if cfg.GeminiModel != "" {
		gen.WithModel(cfg.GeminiModel)
	}

	search := websearch.NewClient(cfg.SerperAPIKey).
		WithGeo(cfg.SearchGeo).
		WithResultCount(cfg.SearchResultCount)

	a := &app{
		cfg:       cfg,
		bidEngine: bid.New(gen),
		analyzer:  knowledge.New(gen),
	}

	// The knowledge base lives in the database; without one, prompts
	// simply run without historical contract context.
	knowledgeText := ""
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.database = database
		a.store = store.New(database)
		if err := a.store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if text, err := a.store.KnowledgeText(ctx); err == nil {
			knowledgeText = text
		}
	}

	extractor := extract.New(gen).WithKnowledge(knowledgeText)
	synthesizer := supplier.NewSynthesizer(gen).WithKnowledge(knowledgeText)
	orchestrator := supplier.NewOrchestrator(
		normalize.New(gen),
		queries.New(gen),
		search,
		synthesizer,
		cfg.GenCallDelay,
	)

	a.pipeline = analysis.New(fetch.NewClient(), extractor, orchestrator, summary.New(gen))

	return a, nil
}

// close releases held resources.
func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}

// requireStore returns the store or a uniform error for commands that
// cannot run without persistence.
func (a *app) requireStore() (*store.Store, error) {
	if a.store == nil {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	return a.store, nil
}
