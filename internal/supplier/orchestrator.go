package supplier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/normalize"
	"github.com/backend-developer-hojiakbar/mebel/internal/queries"
	"github.com/backend-developer-hojiakbar/mebel/internal/websearch"
)

// NameNormalizer batch-converts product names into search variants.
type NameNormalizer interface {
	Normalize(ctx context.Context, items []normalize.Item) map[string]normalize.Variants
}

// QueryGenerator batch-produces search queries per product.
type QueryGenerator interface {
	Generate(ctx context.Context, inputs []queries.Input) map[string][]string
}

// Searcher executes one web search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// SupplierSynthesizer vets search results into supplier records.
type SupplierSynthesizer interface {
	Synthesize(ctx context.Context, product models.Product, results []websearch.Result, lang string) ([]models.Supplier, error)
}

// Orchestrator runs supplier research for every product in a run:
// batch normalize, batch query generation, then a sequential per-product
// loop of concurrent search fan-out, link deduplication and synthesis.
type Orchestrator struct {
	normalizer NameNormalizer
	queries    QueryGenerator
	search     Searcher
	synth      SupplierSynthesizer
	pacer      *Pacer
}

// NewOrchestrator creates an Orchestrator. interval is the minimum spacing
// between generative-model calls; pass 0 to disable pacing in tests.
func NewOrchestrator(n NameNormalizer, q QueryGenerator, s Searcher, synth SupplierSynthesizer, interval time.Duration) *Orchestrator {
	return &Orchestrator{
		normalizer: n,
		queries:    q,
		search:     s,
		synth:      synth,
		pacer:      NewPacer(interval),
	}
}

// Run researches suppliers for products and returns them in input order.
// Products named "N/A" are skipped without consuming query or search budget.
// Any failure while researching one product degrades that product to an
// empty supplier list; only a missing search credential or an expired
// context aborts the run.
// onProduct, when non-nil, is invoked after each product with (done, total).
func (o *Orchestrator) Run(ctx context.Context, products []models.Product, lang string, onProduct func(done, total int)) ([]models.Product, error) {
	out := make([]models.Product, len(products))
	copy(out, products)

	total := len(out)
	done := 0
	report := func() {
		done++
		if onProduct != nil {
			onProduct(done, total)
		}
	}

	// Partition researchable products; skipped ones still count as done.
	var researchable []int
	for i := range out {
		if out[i].Suppliers == nil {
			out[i].Suppliers = []models.Supplier{}
		}
		if out[i].Name == models.NotAvailable || out[i].Name == "" {
			out[i].Suppliers = []models.Supplier{}
			report()
			continue
		}
		researchable = append(researchable, i)
	}

	if len(researchable) == 0 {
		return out, nil
	}

	// Batch stage 1: name normalization (generative call).
	items := make([]normalize.Item, 0, len(researchable))
	for _, i := range researchable {
		items = append(items, normalize.Item{ID: out[i].ID, Name: out[i].Name})
	}
	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	variants := o.normalizer.Normalize(ctx, items)

	// Batch stage 2: query generation (generative call).
	inputs := make([]queries.Input, 0, len(researchable))
	for _, i := range researchable {
		inputs = append(inputs, queries.Input{
			ID:       out[i].ID,
			Name:     out[i].Name,
			Variants: variants[out[i].ID],
			Features: out[i].Features,
		})
	}
	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	queryMap := o.queries.Generate(ctx, inputs)

	// Per-product loop. Sequential on purpose: the pacer bounds the
	// aggregate generative-call rate only because products do not overlap.
	for _, i := range researchable {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		suppliers, err := o.researchProduct(ctx, out[i], queryMap[out[i].ID], lang)
		if err != nil {
			if errors.Is(err, websearch.ErrNoCredential) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			slog.Warn("supplier research failed, product degraded to empty supplier list",
				"product_id", out[i].ID, "product", out[i].Name, "error", err)
			suppliers = []models.Supplier{}
		}

		out[i].Suppliers = suppliers
		report()
	}

	return out, nil
}

// researchProduct runs search fan-out, dedupe and synthesis for one product.
// Panics are converted to errors so one bad product cannot abort the run.
func (o *Orchestrator) researchProduct(ctx context.Context, product models.Product, productQueries []string, lang string) (suppliers []models.Supplier, err error) {
	defer func() {
		if r := recover(); r != nil {
			suppliers = nil
			err = fmt.Errorf("panic while researching product: %v", r)
		}
	}()

	if len(productQueries) == 0 {
		return []models.Supplier{}, nil
	}

	results, err := o.fanOutSearch(ctx, productQueries)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		slog.Debug("no search results for product", "product", product.Name)
		return []models.Supplier{}, nil
	}

	// Generative call: pace before synthesis.
	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	return o.synth.Synthesize(ctx, product, results, lang)
}

// fanOutSearch dispatches all queries concurrently, tolerates individual
// query failures, and merges results deduplicated by link (first wins).
func (o *Orchestrator) fanOutSearch(ctx context.Context, productQueries []string) ([]websearch.Result, error) {
	type slot struct {
		results []websearch.Result
		err     error
	}

	slots := make([]slot, len(productQueries))
	var wg sync.WaitGroup
	for qi, query := range productQueries {
		wg.Add(1)
		go func(qi int, query string) {
			defer wg.Done()
			res, err := o.search.Search(ctx, query)
			slots[qi] = slot{results: res, err: err}
		}(qi, query)
	}
	wg.Wait()

	var merged []websearch.Result
	seen := make(map[string]bool)
	failed := 0
	for qi := range slots {
		if slots[qi].err != nil {
			// A structurally disabled search service is fatal for the run.
			if errors.Is(slots[qi].err, websearch.ErrNoCredential) {
				return nil, slots[qi].err
			}
			slog.Warn("search query failed", "query", productQueries[qi], "error", slots[qi].err)
			failed++
			continue
		}
		for _, r := range slots[qi].results {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			merged = append(merged, r)
		}
	}

	if failed == len(productQueries) && failed > 0 {
		slog.Warn("all search queries failed for product", "queries", len(productQueries))
	}

	return merged, nil
}
