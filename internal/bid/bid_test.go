package bid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/backend-developer-hojiakbar/mebel/internal/genai"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/price"
)

func analyzedResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID: "a1",
		Products: []models.Product{
			{
				ID:       "p1",
				Name:     "Ofis stoli",
				Quantity: 10,
				Suppliers: []models.Supplier{
					{ID: "s1", CompanyName: "Alpha", Price: price.New(1_200_000, "UZS")},
					{ID: "s2", CompanyName: "Beta", Price: price.New(100, "USD")},
				},
			},
			{
				ID:       "p2",
				Name:     "Ofis stuli",
				Quantity: 40,
				Suppliers: []models.Supplier{
					{ID: "s3", CompanyName: "Gamma", Price: price.New(350_000, "UZS")},
				},
			},
		},
	}
}

func TestRollup(t *testing.T) {
	costs := models.AdditionalCosts{
		Logistics:           2_000_000,
		BankGuarantee:       500_000,
		Commission:          300_000,
		FixedCosts:          200_000,
		ProfitMarginPercent: 10,
	}

	rec, err := Rollup(analyzedResult(), Selection{"p1": "s1", "p2": "s3"}, costs)
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	// 10 x 1.2M + 40 x 350k = 26M goods.
	if rec.GoodsTotal != 26_000_000 {
		t.Errorf("goods total = %v, want 26000000", rec.GoodsTotal)
	}
	if rec.Subtotal != 29_000_000 {
		t.Errorf("subtotal = %v, want 29000000", rec.Subtotal)
	}
	if rec.Profit != 2_900_000 {
		t.Errorf("profit = %v, want 2900000", rec.Profit)
	}
	if rec.Total != 31_900_000 || rec.RecommendedBid != 31_900_000 {
		t.Errorf("total = %v, recommended = %v, want 31900000", rec.Total, rec.RecommendedBid)
	}
}

func TestRollupConvertsForeignCurrency(t *testing.T) {
	rec, err := Rollup(analyzedResult(), Selection{"p1": "s2"}, models.AdditionalCosts{})
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	// 10 x 100 USD at the fixed UZS rate.
	want := 10 * 100 * 12650.0
	if rec.GoodsTotal != want {
		t.Errorf("goods total = %v, want %v", rec.GoodsTotal, want)
	}
}

func TestRollupSkipsUnselectedProducts(t *testing.T) {
	rec, err := Rollup(analyzedResult(), Selection{"p2": "s3"}, models.AdditionalCosts{})
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if rec.GoodsTotal != 14_000_000 {
		t.Errorf("goods total = %v, want only the selected product's 14000000", rec.GoodsTotal)
	}
}

func TestRollupUnknownSupplier(t *testing.T) {
	_, err := Rollup(analyzedResult(), Selection{"p1": "missing"}, models.AdditionalCosts{})
	if err == nil {
		t.Fatal("expected error for a supplier ID not on the product")
	}
}

func TestRollupUnresolvablePrice(t *testing.T) {
	result := analyzedResult()
	result.Products[0].Suppliers[0].Price = price.Unknown()

	_, err := Rollup(result, Selection{"p1": "s1"}, models.AdditionalCosts{})
	if err == nil {
		t.Fatal("expected error for an N/A supplier price")
	}
}

func TestRecommendKeepsLocalFigures(t *testing.T) {
	// The model tries to smuggle numbers back; only the narrative fields
	// may come from it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{
					"text": `{"justification": "Narx bozor darajasida.", "competitor_analysis": "Raqobat o'rtacha."}`,
				}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := New(genai.NewClient("test-key").WithBaseURL(srv.URL))
	rec, err := e.Recommend(context.Background(), analyzedResult(),
		Selection{"p1": "s1", "p2": "s3"},
		models.AdditionalCosts{ProfitMarginPercent: 10}, "uz")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if rec.GoodsTotal != 26_000_000 || rec.RecommendedBid != 28_600_000 {
		t.Errorf("figures = %v / %v, want locally computed 26000000 / 28600000", rec.GoodsTotal, rec.RecommendedBid)
	}
	if rec.Justification != "Narx bozor darajasida." {
		t.Errorf("justification = %q", rec.Justification)
	}
	if rec.CompetitorAnalysis != "Raqobat o'rtacha." {
		t.Errorf("competitor analysis = %q", rec.CompetitorAnalysis)
	}
}

func TestRecommendNarrativeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := New(genai.NewClient("test-key").WithBaseURL(srv.URL))
	_, err := e.Recommend(context.Background(), analyzedResult(), Selection{"p1": "s1"}, models.AdditionalCosts{}, "uz")
	if err == nil {
		t.Fatal("expected error when narrative generation fails")
	}
}
