// Package pricing resolves per-token rates for assistant models from the
// LiteLLM community catalog and prices usage records under the configured
// cost mode.
package pricing

import (
	"sort"
	"strings"

	"github.com/tokenbar/tokenbar/internal/usage"
)

// Rates holds USD-per-token prices for one model.
type Rates struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheWrite float64 `json:"cache_write"`
	CacheRead  float64 `json:"cache_read"`
}

// Cost prices a record as a linear combination of its token counters.
func (rt Rates) Cost(r usage.Record) float64 {
	return float64(r.InputTokens)*rt.Input +
		float64(r.OutputTokens)*rt.Output +
		float64(r.CacheCreationTokens)*rt.CacheWrite +
		float64(r.CacheReadTokens)*rt.CacheRead
}

// Table maps model names to rates. Lookup tolerates the naming drift
// between transcript model ids and catalog keys.
type Table struct {
	rates map[string]Rates
	keys  []string // sorted, so fuzzy matches are deterministic
}

// NewTable builds a Table over rates. The map is retained, not copied.
func NewTable(rates map[string]Rates) Table {
	keys := make([]string, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Table{rates: rates, keys: keys}
}

// Len reports the number of models in the table.
func (t Table) Len() int { return len(t.rates) }

// Lookup resolves a transcript model id to rates. Resolution order: exact
// key, a fixed set of prefixed variants, then case-insensitive substring
// containment in either direction over sorted keys. First hit wins.
func (t Table) Lookup(model string) (Rates, bool) {
	if model == "" || len(t.rates) == 0 {
		return Rates{}, false
	}
	if r, ok := t.rates[model]; ok {
		return r, true
	}

	variants := []string{
		"anthropic/" + model,
		"claude-3-5-" + model,
		"claude-3-" + model,
		"claude-" + model,
	}
	for _, v := range variants {
		if r, ok := t.rates[v]; ok {
			return r, true
		}
	}

	lower := strings.ToLower(model)
	for _, k := range t.keys {
		if strings.Contains(strings.ToLower(k), lower) {
			return t.rates[k], true
		}
	}
	for _, k := range t.keys {
		if strings.Contains(lower, strings.ToLower(k)) {
			return t.rates[k], true
		}
	}
	return Rates{}, false
}
