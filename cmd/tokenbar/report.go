package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tokenbar/tokenbar/internal/config"
	"github.com/tokenbar/tokenbar/internal/history"
	"github.com/tokenbar/tokenbar/internal/usage"
)

// narrowTableWidth is the terminal width below which the report drops the
// per-category token columns.
const narrowTableWidth = 100

func NewReportCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		monthly  bool
		jsonOut  bool
		historyN int
	)

	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Print a usage breakdown without launching the dashboard.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("history") {
				if jsonOut {
					return fmt.Errorf("report: --json and --history cannot be combined")
				}
				return runHistoryReport(cmd.Context(), historyN)
			}
			return runUsageReport(cmd.Context(), cfg, logger, monthly, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&monthly, "monthly", false, "aggregate by month instead of by day")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the breakdown as JSON")
	cmd.Flags().IntVar(&historyN, "history", 10, "show the n most recent persisted snapshots")
	cmd.Flags().Lookup("history").NoOptDefVal = "10"

	return cmd
}

func runUsageReport(ctx context.Context, cfg config.Config, logger *slog.Logger, monthly, jsonOut bool) error {
	p := buildPipeline(cfg, logger, false)
	defer p.Close()

	p.controller.Refresh(ctx)
	u, ok := p.controller.Current()
	if !ok {
		return fmt.Errorf("report: scan produced no data")
	}

	rows := u.Daily
	if monthly {
		rows = monthlyRollup(rows)
	} else {
		rows = filterMonth(rows, u.Aggregate.Month)
	}

	if jsonOut {
		return writeJSONReport(os.Stdout, rows, sumTotals(rows))
	}
	if len(rows) == 0 {
		if monthly {
			fmt.Println("No usage recorded yet.")
		} else {
			fmt.Printf("No usage recorded in %s.\n", u.Aggregate.Month)
		}
		return nil
	}

	wide := true
	if width := terminalWidth(); width > 0 && width < narrowTableWidth {
		wide = false
	}
	renderBreakdownTable(os.Stdout, monthly, wide, rows)
	return nil
}

func runHistoryReport(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("report: --history needs a positive count")
	}

	path, err := history.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("report: locating history DB: %w", err)
	}
	store, err := history.OpenStore(path)
	if err != nil {
		return fmt.Errorf("report: opening history DB: %w", err)
	}
	defer store.Close()

	snaps, err := store.Recent(ctx, n)
	if err != nil {
		return fmt.Errorf("report: reading snapshots: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots recorded yet. Run the monitor to capture some.")
		return nil
	}
	renderHistoryTable(os.Stdout, snaps)
	return nil
}

// filterMonth keeps the days with the given YYYY-MM prefix.
func filterMonth(daily []usage.DayTotals, month string) []usage.DayTotals {
	out := make([]usage.DayTotals, 0, len(daily))
	for _, d := range daily {
		if strings.HasPrefix(d.Day, month) {
			out = append(out, d)
		}
	}
	return out
}

// monthlyRollup collapses day buckets into month buckets, ascending.
func monthlyRollup(daily []usage.DayTotals) []usage.DayTotals {
	buckets := make(map[string]usage.Totals)
	for _, d := range daily {
		if len(d.Day) < 7 {
			continue
		}
		t := buckets[d.Day[:7]]
		t.Add(d.Totals)
		buckets[d.Day[:7]] = t
	}

	months := lo.Keys(buckets)
	sort.Strings(months)

	out := make([]usage.DayTotals, 0, len(months))
	for _, m := range months {
		out = append(out, usage.DayTotals{Day: m, Totals: buckets[m]})
	}
	return out
}

func sumTotals(rows []usage.DayTotals) usage.Totals {
	var t usage.Totals
	for _, r := range rows {
		t.Add(r.Totals)
	}
	return t
}

type reportPayload struct {
	Daily  []usage.DayTotals `json:"daily"`
	Totals usage.Totals      `json:"totals"`
}

func writeJSONReport(w io.Writer, rows []usage.DayTotals, totals usage.Totals) error {
	data, err := json.MarshalIndent(reportPayload{Daily: rows, Totals: totals}, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encoding JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func renderBreakdownTable(w io.Writer, monthly, wide bool, rows []usage.DayTotals) {
	label := "Day"
	if monthly {
		label = "Month"
	}

	var headers []string
	if wide {
		headers = []string{label, "Input", "Output", "Cache Write", "Cache Read", "Tokens", "Cost"}
	} else {
		headers = []string{label, "Tokens", "Cost"}
	}

	table := newReportTable(w, headers)
	for _, row := range rows {
		table.Append(breakdownRow(wide, row.Day, row.Totals))
	}
	table.Footer(breakdownRow(wide, "Total", sumTotals(rows)))
	table.Render()
}

func breakdownRow(wide bool, label string, t usage.Totals) []string {
	cost := fmt.Sprintf("$%.2f", t.Cost)
	if !wide {
		return []string{label, formatTokens(t.TotalTokens()), cost}
	}
	return []string{
		label,
		formatTokens(t.InputTokens),
		formatTokens(t.OutputTokens),
		formatTokens(t.CacheCreationTokens),
		formatTokens(t.CacheReadTokens),
		formatTokens(t.TotalTokens()),
		cost,
	}
}

func renderHistoryTable(w io.Writer, snaps []usage.Aggregate) {
	table := newReportTable(w, []string{"Captured", "Day", "Day Tokens", "Day Cost", "Month Tokens", "Month Cost"})
	for _, s := range snaps {
		table.Append([]string{
			s.ComputedAt.Format("2006-01-02 15:04"),
			s.Day,
			formatTokens(s.Today.TotalTokens()),
			fmt.Sprintf("$%.2f", s.Today.Cost),
			formatTokens(s.ThisMonth.TotalTokens()),
			fmt.Sprintf("$%.2f", s.ThisMonth.Cost),
		})
	}
	table.Render()
}

// newReportTable builds a bordered table with the label column
// left-aligned and every metric column right-aligned.
func newReportTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})))
	table.Header(headers)

	alignments := make([]tw.Align, len(headers))
	alignments[0] = tw.AlignLeft
	for i := 1; i < len(alignments); i++ {
		alignments[i] = tw.AlignRight
	}
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = alignments
		c.Footer.Alignment.PerColumn = alignments
	})
	return table
}

// terminalWidth returns the width of stdout, or 0 when it is not a
// terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func formatTokens(n int64) string {
	if n == 0 {
		return "0"
	}
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fb", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fm", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
