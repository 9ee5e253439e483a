package price

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		amount   float64
		currency string
		known    bool
	}{
		{
			name:     "spaced UZS amount",
			input:    "15 000 000 UZS",
			amount:   15000000,
			currency: "UZS",
			known:    true,
		},
		{
			name:     "dollar amount",
			input:    "120 USD",
			amount:   120,
			currency: "USD",
			known:    true,
		},
		{
			name:     "comma separators",
			input:    "15,000,000 uzs",
			amount:   15000000,
			currency: "UZS",
			known:    true,
		},
		{
			name:     "som word",
			input:    "250 000 so'm",
			amount:   250000,
			currency: "UZS",
			known:    true,
		},
		{
			name:     "no currency defaults to UZS",
			input:    "500000",
			amount:   500000,
			currency: "UZS",
			known:    true,
		},
		{
			name:     "decimal comma",
			input:    "120,50 USD",
			amount:   120.5,
			currency: "USD",
			known:    true,
		},
		{
			name:  "sentinel",
			input: "N/A",
			known: false,
		},
		{
			name:  "empty",
			input: "",
			known: false,
		},
		{
			name:  "no digits",
			input: "договорная",
			known: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Parse(tt.input)
			if v.Known != tt.known {
				t.Fatalf("Parse(%q).Known = %v, want %v", tt.input, v.Known, tt.known)
			}
			if !tt.known {
				return
			}
			if v.Amount != tt.amount {
				t.Errorf("Parse(%q).Amount = %v, want %v", tt.input, v.Amount, tt.amount)
			}
			if v.Currency != tt.currency {
				t.Errorf("Parse(%q).Currency = %q, want %q", tt.input, v.Currency, tt.currency)
			}
		})
	}
}

func TestUZSConversion(t *testing.T) {
	usd, ok := New(120, "USD").UZS()
	if !ok {
		t.Fatal("expected known UZS value")
	}
	if usd != 120*12650 {
		t.Errorf("UZS() = %v, want %v", usd, 120*12650)
	}

	// Unknown currency falls back to rate 1.
	odd, ok := New(500, "XYZ").UZS()
	if !ok || odd != 500 {
		t.Errorf("unknown currency UZS() = %v, %v; want 500, true", odd, ok)
	}

	if _, ok := Unknown().UZS(); ok {
		t.Error("unknown value must not resolve to a UZS amount")
	}
}

// Both external price shapes must resolve to the same UZS figure.
func TestUnmarshalBothShapes(t *testing.T) {
	var fromString, fromObject Value

	if err := json.Unmarshal([]byte(`"120 USD"`), &fromString); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"amount": 120, "currency": "usd"}`), &fromObject); err != nil {
		t.Fatalf("object form: %v", err)
	}

	s, okS := fromString.UZS()
	o, okO := fromObject.UZS()
	if !okS || !okO {
		t.Fatal("both forms must be known")
	}
	if s != o {
		t.Errorf("string form = %v UZS, object form = %v UZS; want equal", s, o)
	}
}

func TestUnmarshalUnknownAmount(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"amount": "unknown", "currency": "UZS"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Known {
		t.Error("amount \"unknown\" must produce an unknown value")
	}
	if v.String() != NotAvailable {
		t.Errorf("String() = %q, want %q", v.String(), NotAvailable)
	}
}

func TestFormatUZS(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{15000000, "15 000 000 UZS"},
		{500, "500 UZS"},
		{1234.5, "1 234.5 UZS"},
	}
	for _, tt := range tests {
		if got := FormatUZS(tt.amount); got != tt.expected {
			t.Errorf("FormatUZS(%v) = %q, want %q", tt.amount, got, tt.expected)
		}
	}
}
