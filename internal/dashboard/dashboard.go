// Package dashboard is the live terminal view of agents and tasks.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tOgg1/geoforce/internal/mapview"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/report"
	"github.com/tOgg1/geoforce/internal/store"
	"github.com/tOgg1/geoforce/internal/tasks"
	"github.com/tOgg1/geoforce/internal/telemetry"
)

const (
	defaultRefreshInterval = 500 * time.Millisecond
	defaultStatusTTL       = 4 * time.Second

	minWindowWidth  = 60
	minWindowHeight = 20
)

// Config controls dashboard behaviour.
type Config struct {
	RefreshInterval time.Duration
	Title           string
}

type tab int

const (
	tabMap tab = iota
	tabAgents
	tabTasks
	tabCount
)

var tabLabels = [...]string{"Map", "Agents", "Tasks"}

type tickMsg struct{}

type actionResultMsg struct {
	message string
	err     error
}

type model struct {
	store     *store.Store
	generator *telemetry.Generator
	tasks     *tasks.Controller
	board     *mapview.Board
	config    Config

	width  int
	height int

	tab      tab
	agents   []*models.Agent
	taskList []*models.Task
	summary  report.Summary
	selected int

	statusText    string
	statusErr     bool
	statusExpires time.Time
	quitting      bool
}

func newModel(st *store.Store, gen *telemetry.Generator, ctrl *tasks.Controller, cfg Config) model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.Title == "" {
		cfg.Title = "GeoForce"
	}
	m := model{
		store:     st,
		generator: gen,
		tasks:     ctrl,
		board:     mapview.NewBoard(),
		config:    cfg,
	}
	m.refresh()
	return m
}

// Run blocks until the user quits.
func Run(st *store.Store, gen *telemetry.Generator, ctrl *tasks.Controller, cfg Config) error {
	program := tea.NewProgram(newModel(st, gen, ctrl, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.config.RefreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.statusExpires.IsZero() && time.Now().After(m.statusExpires) {
			m.statusText = ""
		}
		m.refresh()
		return m, m.tickCmd()
	case actionResultMsg:
		if msg.err != nil {
			m.setStatus(true, msg.err.Error())
		} else {
			m.setStatus(false, msg.message)
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
		m.selected = 0
	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.selected = 0
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "t":
		if m.generator != nil {
			moved := m.generator.Tick(context.Background())
			m.setStatus(false, fmt.Sprintf("tick moved %d agents", moved))
			m.refresh()
		}
	case " ":
		return m, m.toggleTelemetryCmd()
	case "s":
		if m.tab == tabTasks {
			return m, m.startSelectedCmd()
		}
	}
	return m, nil
}

func (m model) toggleTelemetryCmd() tea.Cmd {
	gen := m.generator
	if gen == nil {
		return nil
	}
	return func() tea.Msg {
		if gen.IsRunning() {
			gen.Stop()
			return actionResultMsg{message: "telemetry paused"}
		}
		if err := gen.Start(context.Background()); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{message: "telemetry running"}
	}
}

func (m model) startSelectedCmd() tea.Cmd {
	if m.tasks == nil || m.selected >= len(m.taskList) {
		return nil
	}
	ctrl := m.tasks
	task := m.taskList[m.selected]
	return func() tea.Msg {
		if _, err := ctrl.StartTask(context.Background(), task.ID); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{message: "started " + task.Title}
	}
}

func (m *model) refresh() {
	m.agents, m.taskList = m.store.Snapshot()
	m.board.Sync(m.agents, m.taskList)
	m.summary = report.Summarize(m.agents, m.taskList)
	if n := m.rowCount(); m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m *model) moveSelection(delta int) {
	n := m.rowCount()
	if n == 0 {
		m.selected = 0
		return
	}
	m.selected = (m.selected + delta + n) % n
}

func (m model) rowCount() int {
	switch m.tab {
	case tabAgents:
		return len(m.agents)
	case tabTasks:
		return len(m.taskList)
	default:
		return 0
	}
}

func (m *model) setStatus(isErr bool, text string) {
	m.statusText = text
	m.statusErr = isErr
	m.statusExpires = time.Now().Add(defaultStatusTTL)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#94a3b8"))
	activeTab     = tabStyle.Foreground(lipgloss.Color("#f8fafc")).Background(lipgloss.Color("#1e40af"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
)

func (m model) View() string {
	if m.quitting {
		return ""
	}
	width := max(m.width, minWindowWidth)
	height := max(m.height, minWindowHeight)

	parts := []string{m.renderHeader(), m.renderTabs()}
	bodyHeight := height - 6
	switch m.tab {
	case tabAgents:
		parts = append(parts, m.renderAgents())
	case tabTasks:
		parts = append(parts, m.renderTasks())
	default:
		rows := max(4, bodyHeight-len(m.board.Markers()))
		parts = append(parts, m.board.Render(width-2, rows))
	}
	if m.statusText != "" {
		if m.statusErr {
			parts = append(parts, errStyle.Render(m.statusText))
		} else {
			parts = append(parts, okStyle.Render(m.statusText))
		}
	}
	parts = append(parts, faintStyle.Render("tab switch · ↑/↓ select · s start task · t tick · space pause · q quit"))
	return strings.Join(parts, "\n")
}

func (m model) renderHeader() string {
	telemetryState := "paused"
	if m.generator != nil && m.generator.IsRunning() {
		telemetryState = "live"
	}
	s := m.summary
	return fmt.Sprintf("%s  agents %d (%d on duty, %d offline)  tasks %d  done %d%%  telemetry %s",
		titleStyle.Render(m.config.Title), s.Agents, s.AgentsOnDuty, s.AgentsOffline, s.Tasks, s.CompletionRate, telemetryState)
}

func (m model) renderTabs() string {
	labels := make([]string, 0, len(tabLabels))
	for i, label := range tabLabels {
		if tab(i) == m.tab {
			labels = append(labels, activeTab.Render(label))
			continue
		}
		labels = append(labels, tabStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labels...)
}

func (m model) renderAgents() string {
	if len(m.agents) == 0 {
		return faintStyle.Render("no agents")
	}
	lines := make([]string, 0, len(m.agents)+1)
	lines = append(lines, faintStyle.Render(fmt.Sprintf("%-10s %-20s %-9s %7s %9s %9s", "ID", "NAME", "STATUS", "BATTERY", "LAT", "LNG")))
	for i, a := range m.agents {
		lat, lng := "-", "-"
		if a.LastLocation != nil {
			lat = fmt.Sprintf("%.4f", a.LastLocation.Lat)
			lng = fmt.Sprintf("%.4f", a.LastLocation.Lng)
		}
		status := lipgloss.NewStyle().Foreground(lipgloss.Color(mapview.StatusColor(a.Status))).Render(fmt.Sprintf("%-9s", a.Status))
		line := fmt.Sprintf("%-10s %-20s %s %6d%% %9s %9s", shorten(a.ID, 10), shorten(a.Name, 20), status, a.BatteryLevel, lat, lng)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderTasks() string {
	if len(m.taskList) == 0 {
		return faintStyle.Render("no tasks")
	}
	lines := make([]string, 0, len(m.taskList)+1)
	lines = append(lines, faintStyle.Render(fmt.Sprintf("%-10s %-28s %-10s %-12s %s", "ID", "TITLE", "AGENT", "STATUS", "ADDRESS")))
	for i, t := range m.taskList {
		line := fmt.Sprintf("%-10s %-28s %-10s %-12s %s", shorten(t.ID, 10), shorten(t.Title, 28), shorten(t.AgentID, 10), t.Status, t.Location.Address)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
