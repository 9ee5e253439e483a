// Package normalize batch-converts product names into search-optimized
// language variants. Uzbek tender documents mix Cyrillic Uzbek and Russian;
// suppliers list the same goods under Latin spellings, so every product gets
// Latin-Uzbek, Latin-Russian and English forms before query generation.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
)

// Item is one (id, name) pair to normalize.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Variants holds the three search variants for one product name.
type Variants struct {
	LatinUz string `json:"latin_uz"`
	LatinRu string `json:"latin_ru"`
	English string `json:"english"`
}

// Normalizer converts product names in a single batched model call.
type Normalizer struct {
	genai *genai.Client
}

// New creates a Normalizer.
func New(g *genai.Client) *Normalizer {
	return &Normalizer{genai: g}
}

type normalizedName struct {
	ID string `json:"id"`
	Variants
}

var schema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"latin_uz": {"type": "string"},
			"latin_ru": {"type": "string"},
			"english": {"type": "string"}
		},
		"required": ["id", "latin_uz", "latin_ru", "english"]
	}
}`)

// Normalize returns per-id variants for every input item. It never fails:
// on any error every item degrades to its original name in all three slots,
// so the pipeline keeps moving with unoptimized queries.
func (n *Normalizer) Normalize(ctx context.Context, items []Item) map[string]Variants {
	out := make(map[string]Variants, len(items))
	for _, item := range items {
		out[item.ID] = identity(item.Name)
	}
	if len(items) == 0 {
		return out
	}

	var parsed []normalizedName
	err := n.genai.GenerateJSON(ctx, genai.Request{
		Prompt:      buildPrompt(items),
		Schema:      &schema,
		Temperature: 0.1,
	}, &parsed)
	if err != nil {
		slog.Warn("name normalization failed, using original names", "error", err, "count", len(items))
		return out
	}

	for _, nn := range parsed {
		if _, ok := out[nn.ID]; !ok {
			continue
		}
		v := nn.Variants
		if v.LatinUz == "" || v.LatinRu == "" || v.English == "" {
			continue
		}
		out[nn.ID] = v
	}

	return out
}

func identity(name string) Variants {
	return Variants{LatinUz: name, LatinRu: name, English: name}
}

func buildPrompt(items []Item) string {
	payload, _ := json.Marshal(items)
	return fmt.Sprintf(`Convert each product name into three search-optimized variants:
- latin_uz: Latin-script Uzbek
- latin_ru: Latin transliteration of the Russian name (transliterate, do not translate)
- english: English name

Brand names and model numbers must be preserved verbatim in every variant.
Names may arrive in Cyrillic Uzbek or Russian. Return one object per input id.

Input names:
%s`, payload)
}
