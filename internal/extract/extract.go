// Package extract implements structured product and deadline extraction from
// tender documents via the generative model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

// ErrNoProducts is returned when extraction yields an empty product list.
// A run without products has nothing to analyze and must abort.
var ErrNoProducts = errors.New("no products extracted from tender document")

// ErrNoContent is returned when the request carries no document at all.
var ErrNoContent = errors.New("no tender content available for extraction")

// Client performs structured extraction calls.
type Client struct {
	genai     *genai.Client
	knowledge string
}

// New creates an extraction client.
func New(g *genai.Client) *Client {
	return &Client{genai: g}
}

// WithKnowledge attaches aggregated contract knowledge-base text that is
// injected into the prompt as read-only context.
func (c *Client) WithKnowledge(text string) *Client {
	c.knowledge = text
	return c
}

// Source carries the tagged document sections. The priority document is the
// only allowed source of products when present; the context document may
// contribute the deadline only; an untagged web page supplies both.
type Source struct {
	PriorityDoc string
	ContextDoc  string
	WebPage     string
}

func (s Source) empty() bool {
	return s.PriorityDoc == "" && s.ContextDoc == "" && s.WebPage == ""
}

// Result is the outcome of one extraction call.
type Result struct {
	Deadline string
	Products []models.Product
}

// ServiceLot reports whether extraction classified the tender as a service
// lot, which short-circuits supplier research entirely.
func (r *Result) ServiceLot() bool {
	return len(r.Products) == 1 && r.Products[0].Type == models.TypeService
}

// extractedProduct is the model-facing product shape.
type extractedProduct struct {
	Type           string  `json:"type"`
	Name           string  `json:"name"`
	PositionNumber string  `json:"position_number"`
	ParentPosition string  `json:"parent_position"`
	Manufacturer   string  `json:"manufacturer"`
	Features       string  `json:"features"`
	Dimensions     string  `json:"dimensions"`
	Unit           string  `json:"unit"`
	Quantity       float64 `json:"quantity"`
	StartingPrice  string  `json:"starting_price"`
}

type extractionResponse struct {
	Deadline string             `json:"deadline"`
	LotType  string             `json:"lot_type"`
	Products []extractedProduct `json:"products"`
}

var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"deadline": {"type": "string"},
		"lot_type": {"type": "string", "enum": ["PRODUCT", "SERVICE"]},
		"products": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"type": {"type": "string", "enum": ["PRODUCT", "SERVICE"]},
					"name": {"type": "string"},
					"position_number": {"type": "string"},
					"parent_position": {"type": "string"},
					"manufacturer": {"type": "string"},
					"features": {"type": "string"},
					"dimensions": {"type": "string"},
					"unit": {"type": "string"},
					"quantity": {"type": "number"},
					"starting_price": {"type": "string"}
				},
				"required": ["type", "name", "quantity"]
			}
		}
	},
	"required": ["lot_type", "products"]
}`)

// Extract runs structured extraction over the assembled document sections
// and optional images. A schema parse failure is fatal: the document is the
// single source of truth for the run and cannot be silently retried.
func (c *Client) Extract(ctx context.Context, src Source, images []models.ImagePayload, lang string) (*Result, error) {
	if src.empty() && len(images) == 0 {
		return nil, ErrNoContent
	}

	prompt := c.buildPrompt(src, lang)

	var parsed extractionResponse
	err := c.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      prompt,
		Images:      images,
		Schema:      &extractionSchema,
		Temperature: 0.1,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	result := &Result{Deadline: strings.TrimSpace(parsed.Deadline)}
	if result.Deadline == "" {
		result.Deadline = models.NotAvailable
	}

	if strings.EqualFold(parsed.LotType, string(models.TypeService)) {
		result.Products = []models.Product{serviceProduct(parsed)}
		return result, nil
	}

	for _, p := range parsed.Products {
		result.Products = append(result.Products, toProduct(p))
	}

	if len(result.Products) == 0 {
		return nil, ErrNoProducts
	}

	return result, nil
}

// serviceProduct synthesizes the single placeholder item for a service lot.
func serviceProduct(parsed extractionResponse) models.Product {
	name := models.NotAvailable
	features := models.NotAvailable
	startingPrice := models.NotAvailable
	if len(parsed.Products) > 0 {
		first := toProduct(parsed.Products[0])
		name = first.Name
		features = first.Features
		startingPrice = first.StartingPrice
	}
	return models.Product{
		ID:             uuid.NewString(),
		Type:           models.TypeService,
		Name:           name,
		PositionNumber: "1",
		Manufacturer:   models.NotAvailable,
		Features:       features,
		Dimensions:     models.NotAvailable,
		Unit:           "service",
		Quantity:       1,
		StartingPrice:  startingPrice,
		Suppliers:      []models.Supplier{},
	}
}

// toProduct converts a model-emitted product, filling sentinels for every
// absent field. Fields are never left empty or null.
func toProduct(p extractedProduct) models.Product {
	product := models.Product{
		ID:             uuid.NewString(),
		Type:           models.TypeProduct,
		Name:           orNA(p.Name),
		PositionNumber: orNA(p.PositionNumber),
		ParentPosition: strings.TrimSpace(p.ParentPosition),
		Manufacturer:   orNA(p.Manufacturer),
		Features:       orNA(p.Features),
		Dimensions:     orNA(p.Dimensions),
		Unit:           orNA(p.Unit),
		Quantity:       p.Quantity,
		StartingPrice:  orNA(p.StartingPrice),
		Suppliers:      []models.Supplier{},
	}
	if strings.EqualFold(p.Type, string(models.TypeService)) {
		product.Type = models.TypeService
	}
	if product.Quantity <= 0 {
		product.Quantity = 1
	}
	return product
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.NotAvailable
	}
	return s
}

// buildPrompt assembles the tagged-section extraction prompt.
func (c *Client) buildPrompt(src Source, lang string) string {
	var sb strings.Builder

	sb.WriteString(`You are a procurement analyst extracting structured data from a tender (lot) document.

SOURCE PRIORITY RULES (follow strictly):
`)

	switch {
	case src.PriorityDoc != "":
		sb.WriteString("- Extract products ONLY from the PRIORITY DOCUMENT section below. Ignore products mentioned anywhere else.\n")
		if src.ContextDoc != "" {
			sb.WriteString("- The CONTEXT DOCUMENT section may supply the submission deadline ONLY, never products.\n")
		}
	case src.WebPage != "":
		sb.WriteString("- Extract both products and the deadline from the WEB PAGE section below.\n")
	default:
		sb.WriteString("- Extract both products and the deadline from the attached images.\n")
	}

	sb.WriteString(`
CLASSIFICATION:
- First decide whether this lot procures goods (PRODUCT) or a service (SERVICE).
- For a SERVICE lot, return lot_type "SERVICE" and exactly one item describing the service, quantity 1.
- For a goods lot, return lot_type "PRODUCT" and one item per product line.

FIELD RULES:
- name: synthesize the most specific, search-optimized product name possible, merging brand and model into one string.
- position_number groups sub-items that belong to one tender position; parent_position references the owning position.
- starting_price: keep the amount together with its currency exactly as written, or "N/A".
- quantity: the numeric quantity; use 1 when it is missing.
- deadline: the submission deadline as written in the document, or "" when absent.
- Every missing text field must be the string "N/A". Never use null and never omit a field.
`)

	if c.knowledge != "" {
		sb.WriteString("\nKNOWLEDGE BASE (historical contracts, read-only context):\n")
		sb.WriteString(c.knowledge)
		sb.WriteString("\n")
	}

	if src.PriorityDoc != "" {
		sb.WriteString("\n=== PRIORITY DOCUMENT ===\n")
		sb.WriteString(src.PriorityDoc)
		sb.WriteString("\n=== END PRIORITY DOCUMENT ===\n")
	}
	if src.ContextDoc != "" {
		sb.WriteString("\n=== CONTEXT DOCUMENT (deadline only) ===\n")
		sb.WriteString(src.ContextDoc)
		sb.WriteString("\n=== END CONTEXT DOCUMENT ===\n")
	}
	if src.WebPage != "" {
		sb.WriteString("\n=== WEB PAGE ===\n")
		sb.WriteString(src.WebPage)
		sb.WriteString("\n=== END WEB PAGE ===\n")
	}

	fmt.Fprintf(&sb, "\nRespond in JSON. Free-text fields should be in the document's language; the analysis language is %q.\n", lang)

	return sb.String()
}
