package usage

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Summarize recomputes the day and month windows from scratch. Membership
// is by day key: exact match for today, 7-character prefix match for the
// month. The result is independent of record order.
func Summarize(records []Record, now time.Time, cost CostFn) Aggregate {
	if cost == nil {
		cost = func(Record) float64 { return 0 }
	}

	agg := Aggregate{
		Day:        DayKeyFor(now),
		Month:      MonthKeyFor(now),
		ComputedAt: now,
	}
	for _, r := range records {
		c := cost(r)
		if r.DayKey == agg.Day {
			agg.Today.add(r, c)
		}
		if strings.HasPrefix(r.DayKey, agg.Month) {
			agg.ThisMonth.add(r, c)
		}
	}
	return agg
}

// DayTotals is one day's slice of a rollup.
type DayTotals struct {
	Day string `json:"day"`
	Totals
}

// DailyRollup buckets records by day key, ascending. It feeds the report
// table and the monitor's spark strip.
func DailyRollup(records []Record, cost CostFn) []DayTotals {
	if cost == nil {
		cost = func(Record) float64 { return 0 }
	}

	buckets := make(map[string]*Totals)
	for _, r := range records {
		t, ok := buckets[r.DayKey]
		if !ok {
			t = &Totals{}
			buckets[r.DayKey] = t
		}
		t.add(r, cost(r))
	}

	days := lo.Keys(buckets)
	sort.Strings(days)

	out := make([]DayTotals, 0, len(days))
	for _, day := range days {
		out = append(out, DayTotals{Day: day, Totals: *buckets[day]})
	}
	return out
}
