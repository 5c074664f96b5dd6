package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tokenbar/tokenbar/internal/usage"
)

func sampleDaily() []usage.DayTotals {
	return []usage.DayTotals{
		{Day: "2026-02-27", Totals: usage.Totals{InputTokens: 100, OutputTokens: 40, Cost: 0.50, Records: 2}},
		{Day: "2026-03-01", Totals: usage.Totals{InputTokens: 200, OutputTokens: 80, CacheReadTokens: 1000, Cost: 1.25, Records: 3}},
		{Day: "2026-03-02", Totals: usage.Totals{InputTokens: 50, Cost: 0.25, Records: 1}},
	}
}

func TestFilterMonth(t *testing.T) {
	rows := filterMonth(sampleDaily(), "2026-03")
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Day != "2026-03-01" || rows[1].Day != "2026-03-02" {
		t.Errorf("days = %q, %q, want the March buckets", rows[0].Day, rows[1].Day)
	}
}

func TestFilterMonthKeepsEmptyNonNil(t *testing.T) {
	rows := filterMonth(sampleDaily(), "2027-01")
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil slice", rows)
	}
}

func TestMonthlyRollup(t *testing.T) {
	rows := monthlyRollup(sampleDaily())
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Day != "2026-02" || rows[1].Day != "2026-03" {
		t.Errorf("months = %q, %q, want 2026-02 then 2026-03", rows[0].Day, rows[1].Day)
	}
	march := rows[1].Totals
	if march.InputTokens != 250 || march.Records != 4 || march.Cost != 1.50 {
		t.Errorf("March rollup = %+v, want 250 input, 4 records, cost 1.50", march)
	}
}

func TestSumTotals(t *testing.T) {
	total := sumTotals(sampleDaily())
	if total.InputTokens != 350 || total.OutputTokens != 120 || total.Records != 6 {
		t.Errorf("totals = %+v, want 350 input, 120 output, 6 records", total)
	}
	if total.Cost != 2.00 {
		t.Errorf("Cost = %v, want 2.00", total.Cost)
	}
}

func TestWriteJSONReport(t *testing.T) {
	var buf bytes.Buffer
	rows := sampleDaily()
	if err := writeJSONReport(&buf, rows, sumTotals(rows)); err != nil {
		t.Fatalf("writeJSONReport: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output should end with a newline")
	}

	var payload reportPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(payload.Daily) != 3 {
		t.Fatalf("daily len = %d, want 3", len(payload.Daily))
	}
	if payload.Daily[1].Day != "2026-03-01" || payload.Daily[1].CacheReadTokens != 1000 {
		t.Errorf("daily[1] = %+v, want the 2026-03-01 bucket", payload.Daily[1])
	}
	if payload.Totals.Records != 6 {
		t.Errorf("totals.Records = %d, want 6", payload.Totals.Records)
	}
}

func TestWriteJSONReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSONReport(&buf, make([]usage.DayTotals, 0), usage.Totals{}); err != nil {
		t.Fatalf("writeJSONReport: %v", err)
	}
	if !strings.Contains(buf.String(), `"daily": []`) {
		t.Errorf("output = %s, want an empty array, not null", buf.String())
	}
}

func TestBreakdownRowWide(t *testing.T) {
	row := breakdownRow(true, "2026-03-01", usage.Totals{
		InputTokens: 1500, OutputTokens: 200, CacheCreationTokens: 3_000_000, CacheReadTokens: 12, Cost: 4.5,
	})
	want := []string{"2026-03-01", "1.5k", "200", "3.0m", "12", "3.0m", "$4.50"}
	if len(row) != len(want) {
		t.Fatalf("len = %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, row[i], want[i])
		}
	}
}

func TestBreakdownRowNarrow(t *testing.T) {
	row := breakdownRow(false, "2026-03-01", usage.Totals{InputTokens: 100, OutputTokens: 50, Cost: 0.75})
	want := []string{"2026-03-01", "150", "$0.75"}
	if len(row) != 3 || row[0] != want[0] || row[1] != want[1] || row[2] != want[2] {
		t.Errorf("row = %v, want %v", row, want)
	}
}

func TestRenderBreakdownTable(t *testing.T) {
	var buf bytes.Buffer
	renderBreakdownTable(&buf, false, true, sampleDaily())
	out := buf.String()

	for _, want := range []string{"Day", "Cache Read", "2026-03-01", "$1.25", "Total", "$2.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBreakdownTableNarrow(t *testing.T) {
	var buf bytes.Buffer
	renderBreakdownTable(&buf, false, false, sampleDaily())
	out := buf.String()

	if strings.Contains(out, "Cache Read") {
		t.Errorf("narrow table should drop category columns:\n%s", out)
	}
	for _, want := range []string{"Day", "Tokens", "Cost", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBreakdownTableMonthly(t *testing.T) {
	var buf bytes.Buffer
	renderBreakdownTable(&buf, true, true, monthlyRollup(sampleDaily()))
	out := buf.String()

	for _, want := range []string{"Month", "2026-02", "2026-03", "$1.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	renderHistoryTable(&buf, []usage.Aggregate{
		{
			Day:        "2026-03-02",
			Month:      "2026-03",
			Today:      usage.Totals{InputTokens: 50, Cost: 0.25},
			ThisMonth:  usage.Totals{InputTokens: 350, Cost: 2.00},
			ComputedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	})
	out := buf.String()

	for _, want := range []string{"Captured", "2026-03-02 09:30", "$0.25", "$2.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1_000, "1.0k"},
		{1_500, "1.5k"},
		{2_500_000, "2.5m"},
		{3_000_000_000, "3.0b"},
	}
	for _, tc := range cases {
		if got := formatTokens(tc.in); got != tc.want {
			t.Errorf("formatTokens(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
