package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

// modelReturning backs a genai client with a server that always answers text
// and optionally captures the outgoing prompt.
func modelReturning(t *testing.T, text string, prompt *string) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if prompt != nil {
			body, _ := io.ReadAll(r.Body)
			var req struct {
				Contents []struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"contents"`
			}
			json.Unmarshal(body, &req)
			if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
				*prompt = req.Contents[0].Parts[0].Text
			}
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return genai.NewClient("test-key").WithBaseURL(srv.URL)
}

func TestExtractNoContent(t *testing.T) {
	c := New(nil)
	_, err := c.Extract(context.Background(), Source{}, nil, "uz")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestExtractGoodsLot(t *testing.T) {
	c := New(modelReturning(t, `{
		"deadline": "2025-06-11",
		"lot_type": "PRODUCT",
		"products": [
			{"type": "PRODUCT", "name": "Ofis stoli Loft-120", "quantity": 10, "unit": "dona", "starting_price": "1 500 000 UZS"},
			{"type": "PRODUCT", "name": "Ofis stuli", "quantity": 0, "features": ""}
		]
	}`, nil))

	result, err := c.Extract(context.Background(), Source{WebPage: "tender matni"}, nil, "uz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if result.Deadline != "2025-06-11" {
		t.Errorf("deadline = %q", result.Deadline)
	}
	if result.ServiceLot() {
		t.Error("goods lot misclassified as service")
	}
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}

	first := result.Products[0]
	if first.ID == "" {
		t.Error("product ID must be assigned")
	}
	if first.Name != "Ofis stoli Loft-120" || first.Quantity != 10 {
		t.Errorf("first product = %+v", first)
	}
	if first.Manufacturer != models.NotAvailable || first.Dimensions != models.NotAvailable {
		t.Errorf("absent fields must become %q: %+v", models.NotAvailable, first)
	}
	if first.Suppliers == nil {
		t.Error("suppliers must be an empty slice, not nil")
	}

	second := result.Products[1]
	if second.Quantity != 1 {
		t.Errorf("zero quantity must default to 1, got %g", second.Quantity)
	}
	if second.Features != models.NotAvailable {
		t.Errorf("blank features = %q, want %q", second.Features, models.NotAvailable)
	}
}

func TestExtractServiceLot(t *testing.T) {
	c := New(modelReturning(t, `{
		"deadline": "",
		"lot_type": "SERVICE",
		"products": [
			{"type": "SERVICE", "name": "Bino ta'mirlash xizmati", "quantity": 3, "starting_price": "50 000 000 UZS"}
		]
	}`, nil))

	result, err := c.Extract(context.Background(), Source{WebPage: "xizmat tenderi"}, nil, "uz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !result.ServiceLot() {
		t.Fatal("service lot not detected")
	}
	if result.Deadline != models.NotAvailable {
		t.Errorf("blank deadline = %q, want %q", result.Deadline, models.NotAvailable)
	}

	svc := result.Products[0]
	if svc.Type != models.TypeService {
		t.Errorf("type = %q", svc.Type)
	}
	if svc.Quantity != 1 || svc.Unit != "service" {
		t.Errorf("service item must have quantity 1 and unit service, got %g %q", svc.Quantity, svc.Unit)
	}
	if svc.Name != "Bino ta'mirlash xizmati" {
		t.Errorf("name = %q", svc.Name)
	}
	if svc.StartingPrice != "50 000 000 UZS" {
		t.Errorf("starting price = %q", svc.StartingPrice)
	}
}

func TestExtractNoProducts(t *testing.T) {
	c := New(modelReturning(t, `{"deadline": "N/A", "lot_type": "PRODUCT", "products": []}`, nil))

	_, err := c.Extract(context.Background(), Source{WebPage: "bo'sh sahifa"}, nil, "uz")
	if !errors.Is(err, ErrNoProducts) {
		t.Fatalf("err = %v, want ErrNoProducts", err)
	}
}

func TestExtractPromptSectionTagging(t *testing.T) {
	var prompt string
	c := New(modelReturning(t, `{"lot_type": "PRODUCT", "products": [{"type": "PRODUCT", "name": "stol", "quantity": 1}]}`, &prompt)).
		WithKnowledge("oldingi shartnomalar")

	src := Source{
		PriorityDoc: "asosiy hujjat",
		ContextDoc:  "muddat sahifasi",
	}
	if _, err := c.Extract(context.Background(), src, nil, "uz"); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for _, want := range []string{
		"=== PRIORITY DOCUMENT ===",
		"asosiy hujjat",
		"=== CONTEXT DOCUMENT (deadline only) ===",
		"muddat sahifasi",
		"oldingi shartnomalar",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "=== WEB PAGE ===") {
		t.Error("prompt must not contain a web page section for a document-backed run")
	}
}

func TestExtractImagesOnly(t *testing.T) {
	c := New(modelReturning(t, `{"lot_type": "PRODUCT", "products": [{"type": "PRODUCT", "name": "stol", "quantity": 2}]}`, nil))

	images := []models.ImagePayload{{MIMEType: "image/png", Data: "aGVsbG8="}}
	result, err := c.Extract(context.Background(), Source{}, images, "uz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].Name != "stol" {
		t.Errorf("products = %+v", result.Products)
	}
}
