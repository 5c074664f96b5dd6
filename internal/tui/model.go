// Package tui renders the live usage monitor: today/month cards, a
// daily spend strip, and a status footer fed by the refresh controller.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tokenbar/tokenbar/internal/appupdate"
	"github.com/tokenbar/tokenbar/internal/refresh"
	"github.com/tokenbar/tokenbar/internal/usage"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// UpdateMsg carries a controller publication into the program. Sent via
// program.Send from the controller's OnUpdate callback.
type UpdateMsg refresh.Update

// CheckResultMsg carries the startup release check into the footer.
type CheckResultMsg appupdate.Result

var spinnerFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

const (
	minCardWidth = 26
	maxCardWidth = 40
)

type Model struct {
	update     refresh.Update
	hasData    bool
	refreshing bool
	width      int
	height     int
	animFrame  int
	updateHint string

	now func() time.Time

	// onRefresh is wired to the controller's TriggerNow.
	onRefresh func()
}

func NewModel() Model {
	return Model{now: time.Now}
}

// SetOnRefresh sets a callback invoked when the user requests a manual refresh.
func (m *Model) SetOnRefresh(fn func()) {
	m.onRefresh = fn
}

func (m Model) Init() tea.Cmd { return tickCmd() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.animFrame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UpdateMsg:
		m.update = refresh.Update(msg)
		m.hasData = true
		if !m.update.Restored {
			m.refreshing = false
		}
		return m, nil

	case CheckResultMsg:
		if msg.UpdateAvailable {
			m.updateHint = fmt.Sprintf("update %s available · %s", msg.LatestVersion, msg.UpgradeHint)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m = m.requestRefresh()
	}
	return m, nil
}

func (m Model) requestRefresh() Model {
	m.refreshing = true
	if m.onRefresh != nil {
		m.onRefresh()
	}
	return m
}

func (m Model) View() string {
	if m.width < 30 || m.height < 8 {
		return dimStyle.Render("\n  Terminal too small. Resize to at least 30×8.")
	}
	if !m.hasData {
		return m.renderSplash(m.width, m.height)
	}

	sections := []string{
		m.renderHeader(m.width),
		m.renderCards(m.width),
	}
	if strip := m.renderStrip(m.width); strip != "" {
		sections = append(sections, strip)
	}
	sections = append(sections, m.renderFooter(m.width))

	return "\n" + strings.Join(sections, "\n\n") + "\n"
}

func (m Model) renderSplash(w, h int) string {
	spinner := refreshingStyle.Render(string(spinnerFrames[m.animFrame%len(spinnerFrames)]))
	content := lipgloss.JoinVertical(lipgloss.Center,
		headerBrandStyle.Render("tokenbar"),
		"",
		spinner+" "+labelStyle.Render("scanning transcripts…"),
		dimStyle.Render("first results appear shortly"),
	)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHeader(w int) string {
	brand := "  " + headerBrandStyle.Render("tokenbar")
	var right string
	if m.update.Aggregate.Day != "" {
		right = labelStyle.Render(m.update.Aggregate.Day+" · "+formatMonth(m.update.Aggregate.Month)) + "  "
	}
	gap := w - lipgloss.Width(brand) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return brand + strings.Repeat(" ", gap) + right
}

func (m Model) renderCards(w int) string {
	cardW := (w - 8) / 2
	if cardW < minCardWidth {
		cardW = minCardWidth
	}
	if cardW > maxCardWidth {
		cardW = maxCardWidth
	}

	today := m.renderTotalsCard("Today", m.update.Aggregate.Today, cardW)
	month := m.renderTotalsCard("This Month", m.update.Aggregate.ThisMonth, cardW)

	if w >= 2*cardW+8 {
		return "  " + lipgloss.JoinHorizontal(lipgloss.Top, today, "  ", month)
	}
	return "  " + lipgloss.JoinVertical(lipgloss.Left, today, month)
}

func (m Model) renderTotalsCard(title string, t usage.Totals, cardW int) string {
	innerW := cardW - 4
	row := func(label string, v int64) string {
		valW := innerW - 13
		if valW < 6 {
			valW = 6
		}
		return labelStyle.Render(fmt.Sprintf("%-13s", label)) +
			valueStyle.Render(fmt.Sprintf("%*s", valW, formatTokens(v)))
	}

	lines := []string{
		sectionHeaderStyle.Render(title),
		costValueStyle.Render(formatUSD(t.Cost)),
		labelStyle.Render(formatTokens(t.TotalTokens())) + dimStyle.Render(" tokens · ") +
			labelStyle.Render(formatNumber(float64(t.Records))) + dimStyle.Render(" entries"),
		"",
		row("input", t.InputTokens),
		row("output", t.OutputTokens),
		row("cache write", t.CacheCreationTokens),
		row("cache read", t.CacheReadTokens),
	}

	return cardStyle.Width(cardW).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStrip(w int) string {
	daily := m.update.Daily
	if len(daily) < 2 {
		return ""
	}

	values := make([]float64, len(daily))
	peak := 0.0
	for i, d := range daily {
		values[i] = d.Cost
		if d.Cost > peak {
			peak = d.Cost
		}
	}

	stripW := w - 4
	if stripW > 60 {
		stripW = 60
	}

	spark := renderSparkline(values, stripW, colorTeal)
	caption := dimStyle.Render(fmt.Sprintf("last %d days · peak %s/day", len(daily), formatUSD(peak)))
	return "  " + spark + "\n  " + caption
}

func (m Model) renderFooter(w int) string {
	var status string
	switch {
	case m.refreshing:
		spinner := string(spinnerFrames[m.animFrame%len(spinnerFrames)])
		status = refreshingStyle.Render(spinner) + " " + labelStyle.Render("refreshing")
	case m.update.Restored:
		spinner := string(spinnerFrames[m.animFrame%len(spinnerFrames)])
		status = refreshingStyle.Render(spinner) + " " + labelStyle.Render("scanning (showing last session)")
	default:
		status = liveDotStyle.Render("●") + " " + labelStyle.Render("updated "+formatAgo(m.now().Sub(m.update.Aggregate.ComputedAt)))
	}

	parts := []string{status}
	if !m.update.Restored {
		s := m.update.Stats
		stats := fmt.Sprintf("%d files · %d cached · %d parsed", s.Files, s.CacheHits, s.Parsed)
		if s.Failed > 0 {
			stats += fmt.Sprintf(" · %d failed", s.Failed)
		}
		parts = append(parts, dimStyle.Render(stats))
	}
	if m.updateHint != "" {
		parts = append(parts, refreshingStyle.Render(m.updateHint))
	}
	parts = append(parts,
		helpKeyStyle.Render("r")+dimStyle.Render(" refresh")+
			dimStyle.Render("  ")+
			helpKeyStyle.Render("q")+dimStyle.Render(" quit"))

	return fitAnsiWidth("  "+strings.Join(parts, dimStyle.Render("  ·  ")), w)
}
