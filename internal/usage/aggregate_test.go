package usage

import (
	"math/rand"
	"testing"
	"time"
)

func fixedCost(c float64) CostFn {
	return func(Record) float64 { return c }
}

func TestSummarizeWindows(t *testing.T) {
	now := time.Date(2026, 2, 5, 14, 0, 0, 0, time.UTC)
	records := []Record{
		{DayKey: "2026-02-05", InputTokens: 100, OutputTokens: 10},
		{DayKey: "2026-02-05", InputTokens: 200, OutputTokens: 20},
		{DayKey: "2026-02-01", InputTokens: 400, OutputTokens: 40},
		{DayKey: "2026-01-31", InputTokens: 800, OutputTokens: 80},
	}

	agg := Summarize(records, now, fixedCost(1))

	if agg.Day != "2026-02-05" || agg.Month != "2026-02" {
		t.Fatalf("keys = %q/%q, want 2026-02-05/2026-02", agg.Day, agg.Month)
	}
	if agg.Today.InputTokens != 300 || agg.Today.Records != 2 {
		t.Errorf("Today = %d tokens over %d records, want 300 over 2", agg.Today.InputTokens, agg.Today.Records)
	}
	if agg.ThisMonth.InputTokens != 700 || agg.ThisMonth.Records != 3 {
		t.Errorf("ThisMonth = %d tokens over %d records, want 700 over 3", agg.ThisMonth.InputTokens, agg.ThisMonth.Records)
	}
	if agg.Today.Cost != 2 || agg.ThisMonth.Cost != 3 {
		t.Errorf("costs = %v/%v, want 2/3", agg.Today.Cost, agg.ThisMonth.Cost)
	}
}

func TestSummarizeMonthBoundary(t *testing.T) {
	// A pass run on the first of the month sees yesterday's records in
	// neither window.
	now := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	records := []Record{
		{DayKey: "2026-02-28", InputTokens: 500},
		{DayKey: "2026-03-01", InputTokens: 50},
	}

	agg := Summarize(records, now, fixedCost(0))

	if agg.Today.InputTokens != 50 {
		t.Errorf("Today.InputTokens = %d, want 50", agg.Today.InputTokens)
	}
	if agg.ThisMonth.InputTokens != 50 {
		t.Errorf("ThisMonth.InputTokens = %d, want 50", agg.ThisMonth.InputTokens)
	}
}

func TestSummarizeCommutative(t *testing.T) {
	now := time.Date(2026, 2, 5, 14, 0, 0, 0, time.UTC)
	// Dyadic per-token price keeps the float sums exact in every order.
	cost := func(r Record) float64 { return float64(r.InputTokens) * 0.25 }

	records := []Record{
		{DayKey: "2026-02-05", InputTokens: 1},
		{DayKey: "2026-02-05", InputTokens: 2},
		{DayKey: "2026-02-04", InputTokens: 3},
		{DayKey: "2026-02-03", InputTokens: 4},
		{DayKey: "2026-01-20", InputTokens: 5},
		{DayKey: "2025-12-31", InputTokens: 6},
	}
	want := Summarize(records, now, cost)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]Record, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Summarize(shuffled, now, cost)
		if got != want {
			t.Fatalf("aggregate differs after shuffle %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestSummarizeNilCostFn(t *testing.T) {
	now := time.Date(2026, 2, 5, 14, 0, 0, 0, time.UTC)
	agg := Summarize([]Record{{DayKey: "2026-02-05", InputTokens: 10}}, now, nil)
	if agg.Today.Cost != 0 {
		t.Errorf("Today.Cost = %v, want 0 with nil cost fn", agg.Today.Cost)
	}
	if agg.Today.InputTokens != 10 {
		t.Errorf("Today.InputTokens = %d, want 10", agg.Today.InputTokens)
	}
}

func TestTotalTokens(t *testing.T) {
	tot := Totals{InputTokens: 1, OutputTokens: 2, CacheCreationTokens: 3, CacheReadTokens: 4}
	if got := tot.TotalTokens(); got != 10 {
		t.Errorf("TotalTokens = %d, want 10", got)
	}
}

func TestTotalsAdd(t *testing.T) {
	tot := Totals{InputTokens: 1, OutputTokens: 2, Cost: 0.5, Records: 1}
	tot.Add(Totals{InputTokens: 10, OutputTokens: 20, CacheCreationTokens: 3, CacheReadTokens: 4, Cost: 1.25, Records: 2})

	want := Totals{InputTokens: 11, OutputTokens: 22, CacheCreationTokens: 3, CacheReadTokens: 4, Cost: 1.75, Records: 3}
	if tot != want {
		t.Errorf("Add = %+v, want %+v", tot, want)
	}
}

func TestDailyRollup(t *testing.T) {
	records := []Record{
		{DayKey: "2026-02-05", InputTokens: 10},
		{DayKey: "2026-02-03", InputTokens: 30},
		{DayKey: "2026-02-05", InputTokens: 15},
		{DayKey: "2026-02-04", InputTokens: 20},
	}

	days := DailyRollup(records, fixedCost(2))

	if len(days) != 3 {
		t.Fatalf("len = %d, want 3", len(days))
	}
	wantOrder := []string{"2026-02-03", "2026-02-04", "2026-02-05"}
	for i, want := range wantOrder {
		if days[i].Day != want {
			t.Errorf("days[%d].Day = %q, want %q", i, days[i].Day, want)
		}
	}
	if days[2].InputTokens != 25 || days[2].Records != 2 || days[2].Cost != 4 {
		t.Errorf("2026-02-05 rollup = %+v, want 25 tokens, 2 records, cost 4", days[2].Totals)
	}
}

func TestDailyRollupEmpty(t *testing.T) {
	if days := DailyRollup(nil, nil); len(days) != 0 {
		t.Errorf("rollup of no records = %v, want empty", days)
	}
}
