// Package analysis sequences the full tender analysis pipeline: content
// acquisition, structured extraction, supplier research, summary and
// scoring, with progress reporting at every stage boundary.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/backend-developer-hojiakbar/mebel/internal/extract"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/scoring"
)

// Extractor performs structured extraction.
type Extractor interface {
	Extract(ctx context.Context, src extract.Source, images []models.ImagePayload, lang string) (*extract.Result, error)
}

// SupplierResearcher runs supplier research over a product list.
type SupplierResearcher interface {
	Run(ctx context.Context, products []models.Product, lang string, onProduct func(done, total int)) ([]models.Product, error)
}

// Summarizer generates the result summary.
type Summarizer interface {
	Generate(ctx context.Context, products []models.Product, lang string) (string, error)
}

// PageFetcher downloads a tender page as plain text.
type PageFetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

// Pipeline is the top-level orchestrator for one analysis run.
type Pipeline struct {
	fetcher   PageFetcher
	extractor Extractor
	suppliers SupplierResearcher
	summarize Summarizer
	progress  models.ProgressFunc
	now       func() time.Time
}

// New creates a Pipeline.
func New(fetcher PageFetcher, extractor Extractor, suppliers SupplierResearcher, summarize Summarizer) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		suppliers: suppliers,
		summarize: summarize,
		now:       time.Now,
	}
}

// WithProgress sets the progress sink. The pipeline never depends on the
// callback completing and survives a panicking one.
func (p *Pipeline) WithProgress(fn models.ProgressFunc) *Pipeline {
	p.progress = fn
	return p
}

// Run executes the full pipeline for one request. On fatal failure no
// partial result is returned; on success every product carries a suppliers
// slice, possibly empty.
func (p *Pipeline) Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	// Stage 1: content acquisition.
	p.report(models.StageScraping, 0, 1)
	src, err := p.assembleSource(ctx, req)
	if err != nil {
		return nil, err
	}
	p.report(models.StageScraping, 1, 1)

	// Stage 2: structured extraction. Failures here are fatal: the
	// document is the single source of truth for the run.
	p.report(models.StageExtracting, 0, 1)
	extracted, err := p.extractor.Extract(ctx, src, req.Images, req.Language)
	if err != nil {
		return nil, err
	}
	p.report(models.StageExtracting, 1, 1)

	products := extracted.Products

	// Service lots skip supplier research entirely: there is nothing to
	// source, so the single synthesized item keeps an empty supplier list.
	if extracted.ServiceLot() {
		slog.Info("service lot detected, skipping supplier research")
		p.report(models.StageSearching, 1, 1)
	} else {
		total := len(products)
		p.report(models.StageSearching, 0, total)
		products, err = p.suppliers.Run(ctx, products, req.Language, func(done, total int) {
			p.report(models.StageSearching, done, total)
		})
		if err != nil {
			return nil, fmt.Errorf("supplier research failed: %w", err)
		}
	}

	// Stage 4: summary.
	p.report(models.StageSummarizing, 0, 1)
	summaryText, err := p.summarize.Generate(ctx, products, req.Language)
	if err != nil {
		return nil, err
	}
	p.report(models.StageSummarizing, 1, 1)

	score := scoring.Calculate(products, extracted.Deadline, p.now())

	result := &models.AnalysisResult{
		ID:         uuid.NewString(),
		Summary:    summaryText,
		Products:   products,
		Source:     sourceLabel(req),
		Deadline:   extracted.Deadline,
		Score:      &score,
		RawContent: rawContent(src),
		CreatedAt:  p.now(),
	}

	p.report(models.StageDone, 1, 1)
	return result, nil
}

// ReResearch re-runs supplier research for a single product and replaces it
// in the result in place, then recomputes the derived score.
func (p *Pipeline) ReResearch(ctx context.Context, result *models.AnalysisResult, productID, lang string) error {
	idx := -1
	for i := range result.Products {
		if result.Products[i].ID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("product %s not found in analysis %s", productID, result.ID)
	}

	researched, err := p.suppliers.Run(ctx, []models.Product{result.Products[idx]}, lang, nil)
	if err != nil {
		return fmt.Errorf("re-research failed: %w", err)
	}

	result.Products[idx] = researched[0]
	score := scoring.Calculate(result.Products, result.Deadline, p.now())
	result.Score = &score
	return nil
}

// assembleSource maps the request onto the tagged extraction sections.
// An uploaded document is the priority source; a URL alongside it serves as
// deadline-only context; a URL alone is the single untagged source.
func (p *Pipeline) assembleSource(ctx context.Context, req models.AnalysisRequest) (extract.Source, error) {
	var src extract.Source

	switch {
	case req.Content != "" && req.SourceURL != "":
		src.PriorityDoc = req.Content
		page, err := p.fetcher.Page(ctx, req.SourceURL)
		if err != nil {
			// The uploaded document still carries the products; the
			// page was only going to contribute the deadline.
			slog.Warn("failed to fetch context page", "url", req.SourceURL, "error", err)
		} else {
			src.ContextDoc = page
		}
	case req.Content != "":
		src.WebPage = req.Content
	case req.SourceURL != "":
		page, err := p.fetcher.Page(ctx, req.SourceURL)
		if err != nil {
			return src, fmt.Errorf("failed to fetch tender page: %w", err)
		}
		src.WebPage = page
	case len(req.Images) > 0:
		// Image-only analysis: extraction reads the attachments.
	default:
		return src, extract.ErrNoContent
	}

	return src, nil
}

// report delivers a progress update, shielding the run from a panicking sink.
func (p *Pipeline) report(stage models.Stage, current, total int) {
	if p.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress callback panicked", "stage", stage, "panic", r)
		}
	}()
	p.progress(models.Progress{Stage: stage, Current: current, Total: total})
}

func sourceLabel(req models.AnalysisRequest) string {
	if req.SourceURL != "" {
		return req.SourceURL
	}
	if req.FileName != "" {
		return req.FileName
	}
	return "images"
}

func rawContent(src extract.Source) string {
	if src.PriorityDoc != "" {
		return src.PriorityDoc
	}
	return src.WebPage
}
