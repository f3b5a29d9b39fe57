package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
)

var (
	colorMuted = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}

	statusColors = map[change.Status]lipgloss.AdaptiveColor{
		change.StatusPending:    {Light: "#f2ae49", Dark: "#ffb454"},
		change.StatusApproved:   {Light: "#399ee6", Dark: "#59c2ff"},
		change.StatusRejected:   {Light: "#f07171", Dark: "#f07178"},
		change.StatusInProgress: {Light: "#a37acc", Dark: "#d2a6ff"},
		change.StatusCompleted:  {Light: "#86b300", Dark: "#c2d94c"},
		change.StatusCancelled:  {Light: "#828c99", Dark: "#6c7680"},
	}

	columnStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	pendingStyle = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
	metaStyle    = lipgloss.NewStyle().Foreground(colorMuted)
)

// Render lays the columns out side by side, each width cells wide.
func Render(columns []Column, width int) string {
	if width < 16 {
		width = 16
	}
	rendered := make([]string, 0, len(columns))
	for _, col := range columns {
		rendered = append(rendered, renderColumn(col, width))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func renderColumn(col Column, width int) string {
	color := statusColors[col.Status]
	title := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(fmt.Sprintf("%s (%d)", col.Label, len(col.Cards)))

	lines := []string{title, ""}
	inner := width - 4
	for _, card := range col.Cards {
		lines = append(lines, renderCard(card, inner))
	}
	if len(col.Cards) == 0 {
		lines = append(lines, metaStyle.Render("empty"))
	}
	return columnStyle.BorderForeground(color).Width(width).Render(strings.Join(lines, "\n"))
}

func renderCard(card Card, width int) string {
	c := card.Change
	title := truncate(c.Title(), width)
	meta := fmt.Sprintf("%s · %s", c.Priority(), shortID(c.ID().String()))
	if a := c.ApprovedBy(); a != nil && a.Name != "" {
		meta += " · ✓ " + a.Name
	}
	if card.Pending {
		return pendingStyle.Render(title + " …")
	}
	return title + "\n" + metaStyle.Render(truncate(meta, width))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
