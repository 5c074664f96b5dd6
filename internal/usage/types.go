// Package usage defines the normalized usage record extracted from
// assistant transcript lines and the day/month aggregation over it.
package usage

import "time"

// Record is one usage event from a transcript line, normalized to the
// fields the aggregation cares about. It is the unit stored in the file
// cache.
type Record struct {
	// DayKey is the first ten characters of the source timestamp string
	// (YYYY-MM-DD). It is taken from the string as written, without
	// timezone conversion.
	DayKey              string `json:"day_key"`
	Model               string `json:"model,omitempty"`
	InputTokens         int64  `json:"input_tokens,omitempty"`
	OutputTokens        int64  `json:"output_tokens,omitempty"`
	CacheCreationTokens int64  `json:"cache_creation_tokens,omitempty"`
	CacheReadTokens     int64  `json:"cache_read_tokens,omitempty"`
	// CostUSD is the pre-computed cost carried on the line, when present.
	// nil means the line had no costUSD field; present-but-zero is valid.
	CostUSD *float64 `json:"cost_usd,omitempty"`
}

// Totals is the sum of records inside one window.
type Totals struct {
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	Cost                float64 `json:"cost_usd"`
	Records             int64   `json:"records"`
}

func (t *Totals) add(r Record, cost float64) {
	t.InputTokens += r.InputTokens
	t.OutputTokens += r.OutputTokens
	t.CacheCreationTokens += r.CacheCreationTokens
	t.CacheReadTokens += r.CacheReadTokens
	t.Cost += cost
	t.Records++
}

// Add merges another window's totals into t.
func (t *Totals) Add(o Totals) {
	t.InputTokens += o.InputTokens
	t.OutputTokens += o.OutputTokens
	t.CacheCreationTokens += o.CacheCreationTokens
	t.CacheReadTokens += o.CacheReadTokens
	t.Cost += o.Cost
	t.Records += o.Records
}

// TotalTokens returns the sum across all four token counters.
func (t Totals) TotalTokens() int64 {
	return t.InputTokens + t.OutputTokens + t.CacheCreationTokens + t.CacheReadTokens
}

// Aggregate is the published view: totals for the current day and the
// current calendar month.
type Aggregate struct {
	Day        string // YYYY-MM-DD
	Month      string // YYYY-MM
	Today      Totals
	ThisMonth  Totals
	ComputedAt time.Time
}

// CostFn prices a single record. The pricing calculator provides it; tests
// substitute fixed functions.
type CostFn func(Record) float64

// DayKeyFor formats t as a day key in t's location.
func DayKeyFor(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKeyFor formats t as a month key in t's location.
func MonthKeyFor(t time.Time) string {
	return t.Format("2006-01")
}
