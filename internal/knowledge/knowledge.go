// Package knowledge analyzes uploaded historical contracts and aggregates
// them into the knowledge-base text injected into extraction and synthesis
// prompts.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

// Analyzer extracts structured details from contract text.
type Analyzer struct {
	genai *genai.Client
}

// New creates an Analyzer.
func New(g *genai.Client) *Analyzer {
	return &Analyzer{genai: g}
}

var detailsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"customer": {"type": "string"},
		"supplier": {"type": "string"},
		"total_value": {"type": "string"},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"quantity": {"type": "number"},
					"price": {"type": "string"}
				},
				"required": ["name"]
			}
		}
	},
	"required": ["customer", "supplier", "total_value", "items"]
}`)

// Analyze fills the contract's extracted details and moves its status from
// pending to done or error. The status transition is synchronous around the
// model call; callers observe it on the record, not through a side channel.
func (a *Analyzer) Analyze(ctx context.Context, contract *models.Contract) error {
	contract.Status = models.ContractPending
	contract.Error = ""

	var details models.ContractDetails
	err := a.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      buildPrompt(contract),
		Schema:      &detailsSchema,
		Temperature: 0.1,
	}, &details)
	if err != nil {
		contract.Status = models.ContractError
		contract.Error = err.Error()
		return fmt.Errorf("contract analysis failed: %w", err)
	}

	contract.Details = &details
	contract.Status = models.ContractDone
	return nil
}

func buildPrompt(contract *models.Contract) string {
	return fmt.Sprintf(`Extract structured details from this procurement contract:

- customer: the purchasing organization
- supplier: the delivering company
- total_value: the contract total with its currency, as written
- items: the product lines (name, quantity, price with currency)

Use "N/A" for anything the text does not state. Contract text:

%s`, contract.RawText)
}

// BuildContext aggregates analyzed contracts into the read-only text block
// injected into prompts. Pending and failed contracts are excluded.
func BuildContext(contracts []models.Contract) string {
	var sb strings.Builder
	for _, c := range contracts {
		if c.Status != models.ContractDone || c.Details == nil {
			continue
		}
		fmt.Fprintf(&sb, "Contract %s: customer %s, supplier %s, total %s\n",
			c.FileName, c.Details.Customer, c.Details.Supplier, c.Details.TotalValue)
		for _, item := range c.Details.Items {
			fmt.Fprintf(&sb, "  - %s, qty %g, price %s\n", item.Name, item.Quantity, item.Price)
		}
	}
	return strings.TrimSpace(sb.String())
}
