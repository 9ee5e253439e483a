// Package bid computes the recommended bid for an analyzed tender. All
// monetary figures are computed locally; the generative model contributes
// only the justification and competitor-analysis narrative and its output is
// never parsed back for numbers.
package bid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/price"
)

// Engine produces bid recommendations.
type Engine struct {
	genai *genai.Client
}

// New creates an Engine.
func New(g *genai.Client) *Engine {
	return &Engine{genai: g}
}

// Selection maps product IDs to the chosen supplier ID. The caller
// guarantees every product in the result has a selection before invoking.
type Selection map[string]string

// Rollup computes the deterministic cost breakdown without any model call.
// Products without a selected supplier contribute nothing to the goods total.
func Rollup(result *models.AnalysisResult, selection Selection, costs models.AdditionalCosts) (*models.BidRecommendation, error) {
	goodsTotal := 0.0
	for _, p := range result.Products {
		supplierID, ok := selection[p.ID]
		if !ok {
			continue
		}
		sup, found := findSupplier(p, supplierID)
		if !found {
			return nil, fmt.Errorf("supplier %s not found on product %s", supplierID, p.ID)
		}
		uzs, known := sup.Price.UZS()
		if !known {
			return nil, fmt.Errorf("supplier %s for product %s has no resolvable price", sup.CompanyName, p.Name)
		}
		goodsTotal += uzs * p.Quantity
	}

	subtotal := goodsTotal + costs.Logistics + costs.BankGuarantee + costs.Commission + costs.FixedCosts
	profit := subtotal * costs.ProfitMarginPercent / 100
	total := subtotal + profit

	return &models.BidRecommendation{
		GoodsTotal:     goodsTotal,
		Logistics:      costs.Logistics,
		BankGuarantee:  costs.BankGuarantee,
		Commission:     costs.Commission,
		FixedCosts:     costs.FixedCosts,
		Subtotal:       subtotal,
		Profit:         profit,
		Total:          total,
		RecommendedBid: total,
	}, nil
}

type narrative struct {
	Justification      string `json:"justification"`
	CompetitorAnalysis string `json:"competitor_analysis"`
}

var narrativeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"justification": {"type": "string"},
		"competitor_analysis": {"type": "string"}
	},
	"required": ["justification", "competitor_analysis"]
}`)

// Recommend computes the rollup and asks the model for the narrative. The
// locally computed figures are authoritative; they are passed into the
// prompt as context only.
func (e *Engine) Recommend(ctx context.Context, result *models.AnalysisResult, selection Selection, costs models.AdditionalCosts, lang string) (*models.BidRecommendation, error) {
	rec, err := Rollup(result, selection, costs)
	if err != nil {
		return nil, err
	}

	var parsed narrative
	err = e.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      buildPrompt(result, rec, lang),
		Schema:      &narrativeSchema,
		Temperature: 0.4,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("bid narrative generation failed: %w", err)
	}

	rec.Justification = strings.TrimSpace(parsed.Justification)
	rec.CompetitorAnalysis = strings.TrimSpace(parsed.CompetitorAnalysis)
	return rec, nil
}

func findSupplier(p models.Product, supplierID string) (models.Supplier, bool) {
	for _, s := range p.Suppliers {
		if s.ID == supplierID {
			return s, true
		}
	}
	return models.Supplier{}, false
}

// buildPrompt renders the computed breakdown and tender context.
func buildPrompt(result *models.AnalysisResult, rec *models.BidRecommendation, lang string) string {
	var sb strings.Builder

	sb.WriteString("Computed bid breakdown (authoritative, already final):\n")
	fmt.Fprintf(&sb, "- Goods total: %s\n", price.FormatUZS(rec.GoodsTotal))
	fmt.Fprintf(&sb, "- Logistics: %s\n", price.FormatUZS(rec.Logistics))
	fmt.Fprintf(&sb, "- Bank guarantee: %s\n", price.FormatUZS(rec.BankGuarantee))
	fmt.Fprintf(&sb, "- Commission: %s\n", price.FormatUZS(rec.Commission))
	fmt.Fprintf(&sb, "- Fixed costs: %s\n", price.FormatUZS(rec.FixedCosts))
	fmt.Fprintf(&sb, "- Subtotal: %s\n", price.FormatUZS(rec.Subtotal))
	fmt.Fprintf(&sb, "- Profit: %s\n", price.FormatUZS(rec.Profit))
	fmt.Fprintf(&sb, "- Recommended bid: %s\n", price.FormatUZS(rec.RecommendedBid))

	sb.WriteString("\nTender positions:\n")
	for _, p := range result.Products {
		fmt.Fprintf(&sb, "- %s, qty %g %s, starting price %s, %d suppliers found\n",
			p.Name, p.Quantity, p.Unit, p.StartingPrice, len(p.Suppliers))
	}

	if result.RawContent != "" {
		sb.WriteString("\nOriginal tender text (context):\n")
		sb.WriteString(truncate(result.RawContent, 8000))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, `
Write, in language %q:
- justification: 2-4 sentences defending this bid amount for the tender commission.
- competitor_analysis: 2-4 sentences on the likely competitive field and how
  this bid positions against typical market offers for these goods.
Do not restate or recalculate the figures; reference them as given.
`, lang)

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...[truncated]"
}
