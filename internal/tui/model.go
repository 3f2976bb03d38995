package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"safewalk/internal/config"
	"safewalk/internal/emergency"
	"safewalk/internal/geo"
	"safewalk/internal/location"
	"safewalk/internal/route"
)

const maxLogLines = 1000

var (
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	cfg          *config.Config
	table        table.Model
	vp           viewport.Model
	logs         []string
	wrap         bool
	autoscroll   bool
	height       int
	headerHeight int

	alert     *emergency.Alert
	countdown int
	route     *route.Route
	lastLoc   *location.Location
}

func newModel(cfg *config.Config) model {
	cols := []table.Column{
		{Title: "Setting", Width: 24},
		{Title: "Value", Width: 12},
	}
	rows := []table.Row{
		{"Countdown (s)", fmt.Sprintf("%d", cfg.Emergency.CountdownSeconds)},
		{"Min point distance (m)", fmt.Sprintf("%.0f", cfg.Route.MinPointDistanceM)},
		{"Share interval (s)", fmt.Sprintf("%d", cfg.Route.ShareIntervalSeconds)},
		{"Auto-stop (min)", fmt.Sprintf("%d", cfg.Route.AutoStopMinutes)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return model{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.headerHeight = lipgloss.Height(m.renderHeader())
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown":
				m.vp.LineDown(10)
			case "pgup":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case locationMsg:
		loc := msg.loc
		m.lastLoc = &loc
	case emergencyMsg:
		switch msg.ev.Kind {
		case emergency.EventCountdown:
			alert := msg.ev.Alert
			m.alert = &alert
			m.countdown = msg.ev.Remaining
		case emergency.EventActivated:
			alert := msg.ev.Alert
			m.alert = &alert
			m.countdown = 0
		case emergency.EventCancelled, emergency.EventResolved:
			m.alert = nil
			m.countdown = 0
		}
		m.headerHeight = lipgloss.Height(m.renderHeader())
		m.updateViewportHeight()
	case routeMsg:
		switch msg.ev.Kind {
		case route.EventStopped:
			m.route = nil
		default:
			rt := msg.ev.Route
			m.route = &rt
		}
		m.headerHeight = lipgloss.Height(m.renderHeader())
		m.updateViewportHeight()
	}
	return m, nil
}

func (m *model) updateViewportHeight() {
	h := m.height - m.headerHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *model) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m model) renderHeader() string {
	var status []string
	if m.alert != nil {
		line := alertStyle.Render(fmt.Sprintf("%s ALERT %s", strings.ToUpper(string(m.alert.Type)), m.alert.Status))
		if m.countdown > 0 {
			line += fmt.Sprintf("  countdown %ds", m.countdown)
		}
		status = append(status, line)
	} else {
		status = append(status, okStyle.Render("no active alert"))
	}
	if m.route != nil {
		line := fmt.Sprintf("route: %d points, %s", len(m.route.Points), geo.FormatDistance(m.route.TotalDistance))
		if m.route.Destination != "" {
			line += " to " + m.route.Destination
		}
		status = append(status, line)
	} else {
		status = append(status, dimStyle.Render("not tracking"))
	}
	if m.lastLoc != nil {
		status = append(status, dimStyle.Render(fmt.Sprintf("last fix %.5f, %.5f", m.lastLoc.Latitude, m.lastLoc.Longitude)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), "  ", strings.Join(status, "\n"))
}

func (m model) renderFooter() string {
	wrapDot := "9"
	if m.wrap {
		wrapDot = "10"
	}
	scrollDot := "10"
	if !m.autoscroll {
		scrollDot = "9"
	}
	return fmt.Sprintf("q quit | w wrap %s | s scroll %s",
		lipgloss.NewStyle().Foreground(lipgloss.Color(wrapDot)).Render("●"),
		lipgloss.NewStyle().Foreground(lipgloss.Color(scrollDot)).Render("●"))
}

func (m model) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.renderHeader(),
		divider,
		m.vp.View(),
		divider,
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}
