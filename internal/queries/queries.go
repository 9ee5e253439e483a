// Package queries batch-produces diversified supplier search queries for
// every product in a run.
package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/normalize"
)

// QueriesPerProduct is the fixed number of strategy slots per product.
const QueriesPerProduct = 5

// Input describes one product to generate queries for.
type Input struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Variants normalize.Variants `json:"variants"`
	Features string             `json:"features"`
}

// Generator produces search queries in a single batched model call.
type Generator struct {
	genai *genai.Client
}

// New creates a Generator.
func New(g *genai.Client) *Generator {
	return &Generator{genai: g}
}

type productQueries struct {
	ID      string   `json:"id"`
	Queries []string `json:"queries"`
}

var schema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"queries": {
				"type": "array",
				"items": {"type": "string"}
			}
		},
		"required": ["id", "queries"]
	}
}`)

// Generate returns exactly five queries per product id. It never fails: on
// any error every product falls back to a single generic query built from
// its normalized name, and short model output is padded with generics.
func (g *Generator) Generate(ctx context.Context, inputs []Input) map[string][]string {
	out := make(map[string][]string, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	byID := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		byID[in.ID] = in
	}

	var parsed []productQueries
	err := g.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      buildPrompt(inputs),
		Schema:      &schema,
		Temperature: 0.3,
	}, &parsed)
	if err != nil {
		slog.Warn("query generation failed, using generic fallback queries", "error", err, "count", len(inputs))
		for _, in := range inputs {
			out[in.ID] = []string{genericQuery(in)}
		}
		return out
	}

	for _, pq := range parsed {
		in, ok := byID[pq.ID]
		if !ok {
			continue
		}
		out[in.ID] = normalizeCount(pq.Queries, in)
	}

	// Products the model skipped still get a fallback query.
	for _, in := range inputs {
		if _, ok := out[in.ID]; !ok {
			out[in.ID] = []string{genericQuery(in)}
		}
	}

	return out
}

// normalizeCount trims or pads the query list to exactly the slot count.
func normalizeCount(qs []string, in Input) []string {
	var cleaned []string
	for _, q := range qs {
		q = strings.TrimSpace(q)
		if q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return []string{genericQuery(in)}
	}
	for len(cleaned) < QueriesPerProduct {
		cleaned = append(cleaned, genericQuery(in))
	}
	return cleaned[:QueriesPerProduct]
}

// genericQuery is the degraded single-query fallback.
func genericQuery(in Input) string {
	name := in.Variants.LatinUz
	if name == "" {
		name = in.Name
	}
	return fmt.Sprintf("%s narxi sotib olish Toshkent", name)
}

func buildPrompt(inputs []Input) string {
	payload, _ := json.Marshal(inputs)
	return fmt.Sprintf(`Generate exactly %d supplier search queries for each product, one per strategy slot:

1. Local-language price check: the Latin-Uzbek name plus price/buy terms ("narxi", "sotib olish") targeting Uzbekistan.
2. Cross-language purchase-intent search: the Latin-Russian or English name with purchase terms ("купить", "цена", "buy").
3. Technical deep-dive #1: the most distinctive specification from the features text combined with the product name.
4. Technical deep-dive #2: a different specification or compatible-model angle drawn from the features text.
5. Marketplace-scoped search: the product name restricted to a marketplace or B2B portal (olx.uz, asaxiy.uz, alibaba.com, or similar).

Queries must be plain search strings with no quotes or operators other than site: in slot 5.
Return one object per input id with a "queries" array of exactly %d strings.

Products:
%s`, QueriesPerProduct, QueriesPerProduct, payload)
}
