// Package supplier turns raw web search results into vetted supplier records
// and orchestrates the per-product research loop.
package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/price"
	"github.com/backend-developer-hojiakbar/mebel/internal/websearch"
)

// Synthesizer vets search results and extracts structured supplier records.
type Synthesizer struct {
	genai     *genai.Client
	knowledge string
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(g *genai.Client) *Synthesizer {
	return &Synthesizer{genai: g}
}

// WithKnowledge attaches aggregated contract context to synthesis prompts.
func (s *Synthesizer) WithKnowledge(text string) *Synthesizer {
	s.knowledge = text
	return s
}

// synthesizedSupplier is the model-facing supplier shape. Price arrives as
// either a string or an {amount, currency} object; price.Value accepts both.
type synthesizedSupplier struct {
	CompanyName string      `json:"company_name"`
	Price       price.Value `json:"price"`
	Phone       string      `json:"phone"`
	Website     string      `json:"website"`
	Region      string      `json:"region"`
	Address     string      `json:"address"`
	Stock       string      `json:"stock"`
}

var synthesisSchema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"company_name": {"type": "string"},
			"price": {"type": "string"},
			"phone": {"type": "string"},
			"website": {"type": "string"},
			"region": {"type": "string", "enum": ["UZ", "International"]},
			"address": {"type": "string"},
			"stock": {"type": "string", "enum": ["In Stock", "On Order", "Out of Stock", "N/A"]}
		},
		"required": ["company_name", "price", "website", "region", "stock"]
	}
}`)

// Synthesize vets the search results for one product and returns structured
// supplier records. Errors are returned to the orchestrator, which converts
// them into an empty supplier list for this product only.
func (s *Synthesizer) Synthesize(ctx context.Context, product models.Product, results []websearch.Result, lang string) ([]models.Supplier, error) {
	if len(results) == 0 {
		return []models.Supplier{}, nil
	}

	var parsed []synthesizedSupplier
	err := s.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      s.buildPrompt(product, results, lang),
		Schema:      &synthesisSchema,
		Temperature: 0.1,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("supplier synthesis failed: %w", err)
	}

	suppliers := make([]models.Supplier, 0, len(parsed))
	seen := make(map[string]bool)
	for _, raw := range parsed {
		sup := toSupplier(raw)
		if sup.CompanyName == models.NotAvailable {
			continue
		}
		key := strings.ToLower(sup.CompanyName) + "|" + strings.ToLower(sup.Website)
		if seen[key] {
			continue
		}
		seen[key] = true
		suppliers = append(suppliers, sup)
	}

	return suppliers, nil
}

// toSupplier fills sentinels and applies the region default.
func toSupplier(raw synthesizedSupplier) models.Supplier {
	sup := models.Supplier{
		ID:          uuid.NewString(),
		CompanyName: orNA(raw.CompanyName),
		Price:       raw.Price,
		Phone:       orNA(raw.Phone),
		Website:     orNA(raw.Website),
		Region:      models.RegionUZ,
		Address:     orNA(raw.Address),
		Stock:       models.StockUnknown,
	}
	if strings.EqualFold(raw.Region, string(models.RegionInternational)) {
		sup.Region = models.RegionInternational
	}
	switch models.StockStatus(raw.Stock) {
	case models.StockInStock, models.StockOnOrder, models.StockOutOfStock:
		sup.Stock = models.StockStatus(raw.Stock)
	}
	return sup
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.NotAvailable
	}
	return s
}

// buildPrompt renders the vetting rules and the raw search result text.
func (s *Synthesizer) buildPrompt(product models.Product, results []websearch.Result, lang string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are vetting web search results to find genuine suppliers for this product:

Name: %s
Features: %s
Quantity needed: %g %s

VETTING POLICY (apply strictly):
- Accept ONLY genuine commercial sources: e-commerce shops, dealer sites, marketplaces, B2B portals.
- Reject informational, news, forum, blog and government-informational sources outright.
- When uncertain whether a source sells the product, reject it.
- Extract the price together with its currency token whenever one appears in the source text.
- If no price appears for a source, set price to "N/A". Never guess or estimate a price.
- region is "UZ" unless the source is unambiguously international.
- Every field absent from the source text must be "N/A". Never fabricate a value.
- Return an empty array when no result passes vetting.
`, product.Name, product.Features, product.Quantity, product.Unit)

	if s.knowledge != "" {
		sb.WriteString("\nKNOWLEDGE BASE (historical contracts, read-only context):\n")
		sb.WriteString(s.knowledge)
		sb.WriteString("\n")
	}

	sb.WriteString("\nSEARCH RESULTS:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n    %s\n    %s\n", i+1, r.Title, r.Link, r.Snippet)
		if r.PriceRange != "" {
			fmt.Fprintf(&sb, "    Price range: %s\n", r.PriceRange)
		}
	}

	fmt.Fprintf(&sb, "\nRespond in JSON. Text fields should use language %q where the source allows.\n", lang)

	return sb.String()
}
