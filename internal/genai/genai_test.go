package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

// fakeGemini returns a server that replies with the given candidate text.
func fakeGemini(t *testing.T, text string, capture *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerate(t *testing.T) {
	var captured geminiRequest
	server := fakeGemini(t, "hello", &captured)
	defer server.Close()

	client := NewClient("fake-key").WithBaseURL(server.URL)
	text, err := client.Generate(context.Background(), Request{Prompt: "say hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "hello" {
		t.Errorf("Generate() = %q, want %q", text, "hello")
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "say hello" {
		t.Error("prompt not forwarded to the API")
	}
}

func TestGenerateWithSchemaAndImages(t *testing.T) {
	var captured geminiRequest
	server := fakeGemini(t, `{"ok": true}`, &captured)
	defer server.Close()

	schema := json.RawMessage(`{"type": "object"}`)
	client := NewClient("fake-key").WithBaseURL(server.URL)
	_, err := client.Generate(context.Background(), Request{
		Prompt: "extract",
		Images: []models.ImagePayload{{MIMEType: "image/png", Data: "aGVsbG8="}},
		Schema: &schema,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Error("schema must force JSON response mode")
	}
	if len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("expected 2 parts (text + image), got %d", len(captured.Contents[0].Parts))
	}
	if captured.Contents[0].Parts[1].InlineData == nil {
		t.Error("image part missing inline data")
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "quota"}`))
	}))
	defer server.Close()

	client := NewClient("fake-key").WithBaseURL(server.URL)
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the HTTP status, got %v", err)
	}
}

func TestGenerateJSONLooseParsing(t *testing.T) {
	server := fakeGemini(t, "Sure! Here you go:\n```json\n{\"value\": 42}\n```", nil)
	defer server.Close()

	client := NewClient("fake-key").WithBaseURL(server.URL)
	var out struct {
		Value int `json:"value"`
	}
	if err := client.GenerateJSON(context.Background(), Request{Prompt: "x"}, &out); err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if out.Value != 42 {
		t.Errorf("parsed value = %d, want 42", out.Value)
	}
}
