package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/agc/internal/loop"
)

var (
	dashTitleColor  = lipgloss.Color("#0088CC")
	dashMutedColor  = lipgloss.Color("#888888")
	dashGreenColor  = lipgloss.Color("#00AA00")
	dashGoldColor   = lipgloss.Color("#FFA500")
	dashYellowColor = lipgloss.Color("#FFFF00")

	dashTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(dashTitleColor)
	dashMutedStyle = lipgloss.NewStyle().Foreground(dashMutedColor).Italic(true)
	dashBoxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dashTitleColor).
			Padding(0, 1).
			Width(50)
	dashHintStyle = lipgloss.NewStyle().Foreground(dashMutedColor)
)

func renderWaiting(m Model) string {
	var b strings.Builder
	b.WriteString(renderDashHeader())
	b.WriteString("\n\n")
	b.WriteString(dashMutedStyle.Render("listening for the first window..."))
	b.WriteString("\n")
	return b.String()
}

func renderDashHeader() string {
	title := dashTitleStyle.Render("agc")
	subtitle := dashMutedStyle.Render("automatic gain control")
	return title + "  " + subtitle
}

func renderDashboard(m Model) string {
	s := m.snapshot

	var b strings.Builder
	b.WriteString(renderDashHeader())
	b.WriteString("\n\n")
	b.WriteString(dashBoxStyle.Render(renderDashBody(s)))
	b.WriteString("\n")
	b.WriteString(dashHintStyle.Render("↑/↓ volume   +/- baseline target   q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderDashBody(s loop.StatusSnapshot) string {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("Volume %s\n", renderVolumeBar(s.Volume, s.BaselineMax, 30)))
	content.WriteString(fmt.Sprintf("Level   %6.1f dB   target %.1f dB\n", s.DB, s.TargetDB))
	content.WriteString(labelStyle(s.Label).Render(fmt.Sprintf("Label   %-8s (%3.0f%%)", s.Label, s.Confidence*100)))
	content.WriteString("\n")
	content.WriteString(modeStyle(s.Mode).Render(renderModeLine(s)))
	if s.Gaps > 0 {
		content.WriteString("\n")
		content.WriteString(dashMutedStyle.Render(fmt.Sprintf("capture gaps: %d", s.Gaps)))
	}

	return content.String()
}

func renderModeLine(s loop.StatusSnapshot) string {
	if s.Mode == "manual_hold" {
		return fmt.Sprintf("Mode    manual hold (%s left)", fmtSeconds(s.PauseRemainingS))
	}
	return "Mode    auto"
}

func renderVolumeBar(volume, baselineMax, width int) string {
	if width <= 0 {
		width = 1
	}
	filled := volume * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	markerPos := baselineMax * width / 100
	var bar strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			bar.WriteByte('#')
		case i == markerPos:
			bar.WriteByte('|')
		default:
			bar.WriteByte('-')
		}
	}
	return fmt.Sprintf("[%s] %3d%%", bar.String(), volume)
}

func labelStyle(label string) lipgloss.Style {
	switch label {
	case "dialogue":
		return lipgloss.NewStyle().Foreground(dashGreenColor)
	case "music":
		return lipgloss.NewStyle().Foreground(dashGoldColor)
	default:
		return dashMutedStyle
	}
}

func modeStyle(mode string) lipgloss.Style {
	if mode == "manual_hold" {
		return lipgloss.NewStyle().Foreground(dashYellowColor)
	}
	return lipgloss.NewStyle().Foreground(dashGreenColor)
}
