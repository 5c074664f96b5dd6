package pricing

import (
	"fmt"

	"github.com/tokenbar/tokenbar/internal/usage"
)

// Mode selects how a record's cost is determined.
type Mode string

const (
	// ModeAuto prefers the cost carried on the line, computing from tokens
	// when the line has none.
	ModeAuto Mode = "auto"
	// ModeCalculate always computes from tokens and rates, ignoring any
	// cost carried on the line.
	ModeCalculate Mode = "calculate"
	// ModeDisplay only trusts the cost carried on the line.
	ModeDisplay Mode = "display"
)

// ParseMode validates a config string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeCalculate, ModeDisplay:
		return Mode(s), nil
	}
	return "", fmt.Errorf("pricing: unknown cost mode %q", s)
}

// RateSource resolves a model id to per-token rates. *Resolver implements
// it; tests substitute fixed tables.
type RateSource interface {
	Rate(model string) (Rates, bool)
}

// Calculator prices records under one cost mode.
type Calculator struct {
	mode  Mode
	rates RateSource
}

func NewCalculator(rates RateSource, mode Mode) *Calculator {
	if mode == "" {
		mode = ModeAuto
	}
	return &Calculator{mode: mode, rates: rates}
}

// Mode reports the calculator's cost mode.
func (c *Calculator) Mode() Mode { return c.mode }

// Cost prices one record. Unknown models and absent line costs degrade to
// zero; pricing never fails a pass.
func (c *Calculator) Cost(r usage.Record) float64 {
	switch c.mode {
	case ModeDisplay:
		if r.CostUSD != nil {
			return *r.CostUSD
		}
		return 0
	case ModeCalculate:
		return c.fromTokens(r)
	default: // auto
		if r.CostUSD != nil {
			return *r.CostUSD
		}
		return c.fromTokens(r)
	}
}

func (c *Calculator) fromTokens(r usage.Record) float64 {
	if c.rates == nil {
		return 0
	}
	rates, ok := c.rates.Rate(r.Model)
	if !ok {
		return 0
	}
	return rates.Cost(r)
}
