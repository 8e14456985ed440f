package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tock/pkg/simclock"
)

// tickMsg is sent by Bubble Tea on every refresh interval.
type tickMsg time.Time

// snapshotMsg carries a fresh read of the state database. nil snap with a
// non-nil err means the database was unreadable.
type snapshotMsg struct {
	snap *Snapshot
	err  error
}

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchSnapshotCmd returns a tea.Cmd that reads the state database.
func fetchSnapshotCmd(dbPath string) tea.Cmd {
	return func() tea.Msg {
		snap, err := FetchSnapshot(dbPath)
		return snapshotMsg{snap: snap, err: err}
	}
}

// Model is the Bubble Tea model for the tock dashboard.
type Model struct {
	theme  Theme
	dbPath string

	snap *Snapshot
	err  error

	width  int
	height int

	events viewport.Model
	ready  bool
}

// newModel creates the initial dashboard model.
func newModel() Model {
	return Model{
		theme:  DefaultTheme(),
		dbPath: defaultDBPath(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshotCmd(m.dbPath), tickCmd(), watchStateDir(m.dbPath))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		eventsHeight := m.height - headerHeight - boardHeight(m.snap) - 3
		if eventsHeight < 3 {
			eventsHeight = 3
		}
		if !m.ready {
			m.events = viewport.New(m.width, eventsHeight)
			m.ready = true
		} else {
			m.events.Width = m.width
			m.events.Height = eventsHeight
		}
		m.refreshEvents()
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchSnapshotCmd(m.dbPath), tickCmd())

	case snapshotMsg:
		m.snap, m.err = msg.snap, msg.err
		m.refreshEvents()
		return m, nil

	case fsChangeMsg:
		// Re-arm the watcher after every change notification.
		return m, tea.Batch(fetchSnapshotCmd(m.dbPath), watchStateDir(m.dbPath))
	}
	return m, nil
}

// refreshEvents rebuilds the event viewport content from the snapshot.
func (m *Model) refreshEvents() {
	if !m.ready || m.snap == nil {
		return
	}
	m.events.SetContent(renderEvents(m.snap, m.theme))
	m.events.GotoBottom()
}

const headerHeight = 2

// View implements tea.Model.
func (m Model) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(m.theme.Error).
			Render(fmt.Sprintf("cannot read simulation state: %v\n\npress q to quit", m.err))
	}
	if m.snap == nil {
		return "loading..."
	}

	header := renderHeader(m.snap, m.theme)
	board := renderBoard(m.snap, m.theme)
	eventsTitle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Secondary).Render("Events")

	return lipgloss.JoinVertical(lipgloss.Left, header, board, eventsTitle, m.events.View())
}

// renderHeader shows the clock line.
func renderHeader(s *Snapshot, theme Theme) string {
	stateStyle := lipgloss.NewStyle().Foreground(theme.Error)
	stateText := "stopped"
	if s.State.IsRunning {
		stateStyle = lipgloss.NewStyle().Foreground(theme.Success)
		stateText = "running"
	}
	clock := fmt.Sprintf("tick %d · day %d · week %d · %s",
		s.State.CurrentTick,
		simclock.DayIndex(s.State.CurrentTick, s.HoursPerDay),
		simclock.CurrentWeek(s.State.CurrentTick, s.HoursPerDay),
		simclock.TickToTimeOfDay(s.State.CurrentTick, s.HoursPerDay))

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("tock")
	return fmt.Sprintf("%s  %s  %s\n", title, stateStyle.Render(stateText), clock)
}
