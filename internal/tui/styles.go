package tui

import "github.com/charmbracelet/lipgloss"

// ─── Color Palette (Catppuccin Mocha) ───────────────────────────────────────

var (
	colorMantle   = lipgloss.Color("#181825") // deeper bg
	colorSurface0 = lipgloss.Color("#313244") // card bg
	colorSurface1 = lipgloss.Color("#45475A") // lighter surface
	colorText     = lipgloss.Color("#CDD6F4") // primary text
	colorSubtext  = lipgloss.Color("#A6ADC8") // secondary text
	colorDim      = lipgloss.Color("#585B70") // muted, borders

	colorAccent    = lipgloss.Color("#CBA6F7") // mauve – primary accent
	colorBlue      = lipgloss.Color("#89B4FA") // section headers
	colorSapphire  = lipgloss.Color("#74C7EC") // key hints
	colorGreen     = lipgloss.Color("#A6E3A1") // healthy / live
	colorYellow    = lipgloss.Color("#F9E2AF") // refreshing
	colorPeach     = lipgloss.Color("#FAB387") // cost figures
	colorTeal      = lipgloss.Color("#94E2D5") // spark strip
	colorLavender  = lipgloss.Color("#B4BEFE") // titles
	colorRosewater = lipgloss.Color("#F5E0DC") // hero values
)

// ─── Reusable Styles ────────────────────────────────────────────────────────

var (
	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorSapphire).
			Bold(true)

	heroValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRosewater)

	costValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPeach)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	liveDotStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	refreshingStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)
