// Package summary produces the short natural-language synthesis shown at
// the top of an analysis result.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/price"
)

// Generator produces analysis summaries.
type Generator struct {
	genai *genai.Client
}

// New creates a Generator.
func New(g *genai.Client) *Generator {
	return &Generator{genai: g}
}

// emptyMessages are the canned zero-product texts, keyed by language.
var emptyMessages = map[string]string{
	"uz": "Tahlil qilinadigan mahsulotlar topilmadi.",
	"ru": "Товары для анализа не найдены.",
	"en": "No products found to summarize.",
}

// Generate produces a 2-3 sentence summary of the finalized product and
// supplier set. A zero-product set short-circuits to a canned message
// without calling the model.
func (g *Generator) Generate(ctx context.Context, products []models.Product, lang string) (string, error) {
	if len(products) == 0 {
		if msg, ok := emptyMessages[lang]; ok {
			return msg, nil
		}
		return emptyMessages["en"], nil
	}

	text, err := g.genai.Generate(ctx, genai.Request{
		Prompt:      buildPrompt(products, lang),
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// buildPrompt renders the aggregated product and supplier facts.
func buildPrompt(products []models.Product, lang string) string {
	var sb strings.Builder

	sb.WriteString("Tender analysis data:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "- %s (qty %g %s, starting price %s): %d suppliers found",
			p.Name, p.Quantity, p.Unit, p.StartingPrice, len(p.Suppliers))
		if best, uzs, ok := bestOffer(p); ok {
			fmt.Fprintf(&sb, ", best offer %s from %s (%s, %s)",
				price.FormatUZS(uzs), best.CompanyName, best.Region, best.Stock)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, `
Write a 2-3 sentence analysis summary in language %q. Highlight the best
value found, any risk signals (products with no suppliers, offers above the
starting price, everything out of stock), and end with a short participation
recommendation. Plain text only, no lists or markdown.
`, lang)

	return sb.String()
}

func bestOffer(p models.Product) (models.Supplier, float64, bool) {
	var best models.Supplier
	var bestUZS float64
	found := false
	for _, s := range p.Suppliers {
		uzs, ok := s.Price.UZS()
		if !ok || uzs <= 0 {
			continue
		}
		if !found || uzs < bestUZS {
			best = s
			bestUZS = uzs
			found = true
		}
	}
	return best, bestUZS, found
}
