package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleGray  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleGreen = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleRed   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := styleHeader.Render(fmt.Sprintf("sequoia │ model=%s │ user=%s", m.modelKey(), m.svc.Username))

	var errLine string
	if m.err != nil {
		errLine = styleRed.Render("error: " + m.err.Error())
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		stylePanel.Render(m.runs.View()),
		m.renderPredictions(),
		errLine,
		m.renderFooter(),
	)
	return body
}

func (m Model) renderPredictions() string {
	if len(m.preds) == 0 {
		return stylePanel.Render("Predictions: " + styleDim.Render("(none)"))
	}
	lines := []string{"Recent predictions:"}
	for _, p := range m.preds {
		prob := fmt.Sprintf("%.3f", p.Prob)
		if p.Prob >= 0.5 {
			prob = styleGreen.Render(prob)
		} else {
			prob = styleRed.Render(prob)
		}
		lines = append(lines, fmt.Sprintf("  %s  %s  p=%s",
			p.EventTime.UTC().Format("2006-01-02 15:04"), p.Symbol, prob))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	hints := []string{"q: quit", "tab: switch model", "r: refresh", "↑/↓: scroll runs"}
	hintStrings := make([]string, len(hints))
	for i, h := range hints {
		hintStrings[i] = styleDim.Render(h)
	}
	return styleGray.Render("│ " + strings.Join(hintStrings, " │ ") + " │")
}
