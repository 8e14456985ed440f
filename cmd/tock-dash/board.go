package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tock/pkg/protocol"
)

// boardHeight reports how many terminal rows the worker board occupies, so
// the events viewport can take the rest.
func boardHeight(s *Snapshot) int {
	if s == nil {
		return 0
	}
	// One card row: three content lines plus the border.
	return 6
}

// renderBoard renders one card per worker, colored by current status.
func renderBoard(s *Snapshot, theme Theme) string {
	if len(s.Workers) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("no workers in roster")
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	cards := make([]string, 0, len(s.Workers))
	for _, w := range s.Workers {
		status, statusColor := workerStatus(s, w, theme)
		name := w.Name
		if w.IsTeamLead {
			name += " ★"
		}
		dc := s.Counts[w.ID]
		body := fmt.Sprintf("%s\n%s\n%s",
			lipgloss.NewStyle().Bold(true).Render(name),
			lipgloss.NewStyle().Foreground(statusColor).Render(status),
			lipgloss.NewStyle().Foreground(theme.Muted).Render(
				fmt.Sprintf("today: %d email / %d chat", dc.Email, dc.Chat)))
		cards = append(cards, cardStyle.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// workerStatus resolves a worker's display status from the override table.
func workerStatus(s *Snapshot, w protocol.Worker, theme Theme) (string, lipgloss.Color) {
	if o, ok := s.Overrides[w.ID]; ok && o.ActiveAt(s.State.CurrentTick) {
		switch o.Status {
		case protocol.StatusSickLeave:
			return "sick leave", theme.Error
		case protocol.StatusMeeting:
			return "in a meeting", theme.Warning
		case protocol.StatusBlocked:
			return "blocked", theme.Warning
		default:
			return string(o.Status), theme.Muted
		}
	}
	return "available", theme.Success
}

// renderEvents renders the event stream, newest last.
func renderEvents(s *Snapshot, theme Theme) string {
	if len(s.Events) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("no events yet")
	}
	tickStyle := lipgloss.NewStyle().Foreground(theme.Muted)
	typeStyle := lipgloss.NewStyle().Foreground(theme.Secondary)

	var sb strings.Builder
	for _, e := range s.Events {
		targets := strings.Join(e.TargetIDs, ", ")
		if targets == "" {
			targets = "-"
		}
		fmt.Fprintf(&sb, "%s %s → %s\n",
			tickStyle.Render(fmt.Sprintf("[tick %4d]", e.AtTick)),
			typeStyle.Render(string(e.Type)),
			targets)
	}
	return sb.String()
}
