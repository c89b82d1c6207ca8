package usage

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPrice holds the per-million-token prices for one provider/model pair
type ModelPrice struct {
	InputPerMillion  decimal.Decimal
	OutputPerMillion decimal.Decimal
}

// PriceTable maps provider -> model -> price pair. It is read-mostly,
// process-wide state: built once at startup (or loaded from config) and
// injected into the usage service rather than reached as a global.
type PriceTable struct {
	prices map[string]map[string]ModelPrice
}

// NewPriceTable creates an empty price table
func NewPriceTable() *PriceTable {
	return &PriceTable{prices: make(map[string]map[string]ModelPrice)}
}

// Set registers a price pair for a provider/model (case-insensitive keys)
func (t *PriceTable) Set(provider, model string, price ModelPrice) {
	provider = strings.ToLower(provider)
	model = strings.ToLower(model)
	if t.prices[provider] == nil {
		t.prices[provider] = make(map[string]ModelPrice)
	}
	t.prices[provider][model] = price
}

// Lookup returns the price pair for a provider/model
func (t *PriceTable) Lookup(provider, model string) (ModelPrice, bool) {
	price, ok := t.prices[strings.ToLower(provider)][strings.ToLower(model)]
	return price, ok
}

var million = decimal.NewFromInt(1_000_000)

// Cost computes the monetary cost of a call. Unknown provider/model pairs
// return (0, false): usage recording must never fail on a pricing-table gap,
// the caller logs a warning and records the usage at zero cost.
func (t *PriceTable) Cost(provider, model string, inputTokens, outputTokens int64) (decimal.Decimal, bool) {
	price, ok := t.Lookup(provider, model)
	if !ok {
		return decimal.Zero, false
	}
	inputCost := price.InputPerMillion.Mul(decimal.NewFromInt(inputTokens)).Div(million)
	outputCost := price.OutputPerMillion.Mul(decimal.NewFromInt(outputTokens)).Div(million)
	return inputCost.Add(outputCost), true
}

// DefaultPriceTable returns the built-in price table for the supported
// providers. Prices are USD per million tokens.
func DefaultPriceTable() *PriceTable {
	t := NewPriceTable()
	t.Set("openai", "gpt-4", ModelPrice{InputPerMillion: dec("30"), OutputPerMillion: dec("60")})
	t.Set("openai", "gpt-4-turbo", ModelPrice{InputPerMillion: dec("10"), OutputPerMillion: dec("30")})
	t.Set("openai", "gpt-4o", ModelPrice{InputPerMillion: dec("2.50"), OutputPerMillion: dec("10")})
	t.Set("openai", "gpt-3.5-turbo", ModelPrice{InputPerMillion: dec("0.50"), OutputPerMillion: dec("1.50")})
	t.Set("anthropic", "claude-3-opus", ModelPrice{InputPerMillion: dec("15"), OutputPerMillion: dec("75")})
	t.Set("anthropic", "claude-3-sonnet", ModelPrice{InputPerMillion: dec("3"), OutputPerMillion: dec("15")})
	t.Set("anthropic", "claude-3-haiku", ModelPrice{InputPerMillion: dec("0.25"), OutputPerMillion: dec("1.25")})
	t.Set("google", "gemini-pro", ModelPrice{InputPerMillion: dec("0.50"), OutputPerMillion: dec("1.50")})
	t.Set("google", "gemini-ultra", ModelPrice{InputPerMillion: dec("7"), OutputPerMillion: dec("21")})
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
