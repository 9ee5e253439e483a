// Package price provides a single normalized representation for the
// heterogeneous price data that flows through the platform. External sources
// deliver prices either as free text ("12 000 000 UZS", "120 USD", "N/A") or
// as a structured {amount, currency} pair; both shapes normalize into Value
// at the boundary so downstream code never branches on the external form.
package price

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NotAvailable is the sentinel emitted when a source carries no price.
const NotAvailable = "N/A"

// Value is a tagged price. Known is false when the amount could not be
// resolved from the source; such values render as "N/A" and never as zero.
type Value struct {
	Amount   float64
	Currency string
	Known    bool
}

// Unknown returns the "no price available" value.
func Unknown() Value {
	return Value{Currency: "UZS"}
}

// New returns a known price value with an uppercased currency code.
func New(amount float64, currency string) Value {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "UZS"
	}
	return Value{Amount: amount, Currency: code, Known: true}
}

// uzsRates maps uppercased currency codes to their UZS conversion rate.
// Unknown codes fall back to rate 1 so a foreign amount is never dropped.
var uzsRates = map[string]float64{
	"UZS": 1,
	"USD": 12650,
	"EUR": 13800,
	"RUB": 140,
	"KZT": 27,
	"CNY": 1750,
	"KRW": 9.5,
	"TRY": 370,
}

// UZS converts the value into the reference currency. The second return is
// false for unknown values, which must surface as "N/A" rather than zero.
func (v Value) UZS() (float64, bool) {
	if !v.Known {
		return 0, false
	}
	rate, ok := uzsRates[strings.ToUpper(v.Currency)]
	if !ok {
		rate = 1
	}
	return v.Amount * rate, true
}

// String renders the value as "amount CODE" or the N/A sentinel.
func (v Value) String() string {
	if !v.Known {
		return NotAvailable
	}
	return fmt.Sprintf("%s %s", formatAmount(v.Amount), v.Currency)
}

// FormatUZS renders a UZS amount with thousands separators for display.
func FormatUZS(amount float64) string {
	return formatAmount(amount) + " UZS"
}

func formatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + fracPart
	}
	return out
}

// amountPattern matches a number with optional space/comma/apostrophe group
// separators and an optional decimal part.
var amountPattern = regexp.MustCompile(`-?\d[\d\s,'\x{00A0}]*(?:[.,]\d+)?`)

// currencyPattern matches a trailing currency token (code or common word).
var currencyPattern = regexp.MustCompile(`(?i)\b(uzs|usd|eur|rub|kzt|cny|krw|try|so'?m|sum|сум|доллар|руб)\b`)

var currencyAliases = map[string]string{
	"SOM": "UZS", "SO'M": "UZS", "SUM": "UZS", "СУМ": "UZS",
	"ДОЛЛАР": "USD", "РУБ": "RUB",
}

// Parse normalizes a free-text price into a Value. Empty strings, the N/A
// sentinel, and text without digits all produce an unknown value. A missing
// currency token defaults to UZS.
func Parse(raw string) Value {
	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, NotAvailable) {
		return Unknown()
	}

	match := amountPattern.FindString(text)
	if match == "" {
		return Unknown()
	}

	amount, ok := parseAmount(match)
	if !ok {
		return Unknown()
	}

	currency := "UZS"
	if token := currencyPattern.FindString(text); token != "" {
		code := strings.ToUpper(token)
		if alias, ok := currencyAliases[code]; ok {
			code = alias
		}
		currency = code
	}

	return New(amount, currency)
}

// parseAmount strips group separators and resolves the decimal marker.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	// A comma followed by exactly two digits at the end is a decimal marker;
	// every other comma is a thousands separator.
	if idx := strings.LastIndex(s, ","); idx != -1 && len(s)-idx-1 == 2 {
		s = strings.ReplaceAll(s[:idx], ",", "") + "." + s[idx+1:]
	}
	replacer := strings.NewReplacer(" ", "", " ", "", ",", "", "'", "")
	s = replacer.Replace(s)
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// structuredPrice is the object form some sources use.
type structuredPrice struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
}

// UnmarshalJSON accepts both external price shapes: a string ("120 USD",
// "N/A") or an object ({"amount": 120, "currency": "USD"}). The object form
// also tolerates a quoted numeric amount and the literal "unknown".
func (v *Value) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = Parse(text)
		return nil
	}

	var obj structuredPrice
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("price must be a string or {amount, currency} object: %w", err)
	}

	var amount float64
	if err := json.Unmarshal(obj.Amount, &amount); err != nil {
		var s string
		if err := json.Unmarshal(obj.Amount, &s); err != nil || s == "unknown" {
			*v = Unknown()
			return nil
		}
		parsed := Parse(s)
		if !parsed.Known {
			*v = Unknown()
			return nil
		}
		amount = parsed.Amount
	}

	*v = New(amount, obj.Currency)
	return nil
}

// MarshalJSON emits the string form, keeping stored records human-readable.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}
