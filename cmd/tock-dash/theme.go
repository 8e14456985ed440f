package main

import "github.com/charmbracelet/lipgloss"

// Theme groups the ANSI colors the dashboard renders with.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// DefaultTheme is tuned for dark terminals: a cool accent pair plus
// traffic-light status colors.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("39"),  // deep sky blue
		Secondary: lipgloss.Color("75"),  // steel blue
		Success:   lipgloss.Color("42"),  // spring green
		Warning:   lipgloss.Color("214"), // orange
		Error:     lipgloss.Color("203"), // salmon
		Muted:     lipgloss.Color("245"), // gray
	}
}
