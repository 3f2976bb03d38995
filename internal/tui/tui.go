// Package tui renders live safety status in the terminal: the active
// alert, route progress, and a scrolling event log.
package tui

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"safewalk/internal/config"
	"safewalk/internal/emergency"
	"safewalk/internal/location"
	"safewalk/internal/route"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries one event log line for the viewport.
type logMsg struct{ line string }

// locationMsg carries a raw location fix.
type locationMsg struct{ loc location.Location }

// emergencyMsg carries an alert state change.
type emergencyMsg struct{ ev emergency.Event }

// routeMsg carries a route state change.
type routeMsg struct{ ev route.Event }

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// UI owns the bubbletea program and feeds it coordinator events.
type UI struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
	unsubs     []func()
}

// New starts the terminal UI.
func New(cfg *config.Config) *UI {
	u := &UI{done: make(chan struct{})}
	u.sendSignal.Store(true)
	p := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	u.program = p
	go func() {
		_, _ = p.Run()
		close(u.done)
		if u.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return u
}

// Attach subscribes the UI to the coordinators. Subscriptions are released
// on Close.
func (u *UI) Attach(coord *emergency.Coordinator, tracker *route.Tracker, feed *location.Feed) {
	u.unsubs = append(u.unsubs,
		coord.Subscribe(u.OnEmergency),
		tracker.Subscribe(u.OnRoute),
		feed.Subscribe(u.OnLocation),
	)
}

// OnLocation renders one raw location fix into the event log.
func (u *UI) OnLocation(loc location.Location) {
	line := fmt.Sprintf("%s[%s]%s %sfix%s %slat=%.5f%s %slon=%.5f%s %sacc=%.0fm%s",
		colorGray, loc.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset,
		colorGreen, loc.Latitude, colorReset,
		colorYellow, loc.Longitude, colorReset,
		colorCyan, loc.Accuracy, colorReset)
	u.program.Send(logMsg{line: line})
	u.program.Send(locationMsg{loc: loc})
}

// OnEmergency renders one alert state change.
func (u *UI) OnEmergency(ev emergency.Event) {
	kindColor := colorRed
	if ev.Kind == emergency.EventResolved || ev.Kind == emergency.EventCancelled {
		kindColor = colorGreen
	}
	line := fmt.Sprintf("%s[%s]%s %sALERT %s%s %stype=%s%s %sstatus=%s%s",
		colorGray, ev.Alert.Timestamp.Format(time.RFC3339), colorReset,
		kindColor, ev.Kind, colorReset,
		colorMagenta, ev.Alert.Type, colorReset,
		colorBlue, ev.Alert.Status, colorReset)
	if ev.Kind == emergency.EventCountdown {
		line += fmt.Sprintf(" %sremaining=%ds%s", colorYellow, ev.Remaining, colorReset)
	}
	if n := len(ev.Alert.ContactsNotified); n > 0 {
		line += fmt.Sprintf(" %snotified=%d%s", colorCyan, n, colorReset)
	}
	u.program.Send(logMsg{line: line})
	u.program.Send(emergencyMsg{ev: ev})
}

// OnRoute renders one route state change.
func (u *UI) OnRoute(ev route.Event) {
	line := fmt.Sprintf("%s[%s]%s %sroute %s%s %spoints=%d%s %sdist=%.0fm%s",
		colorGray, ev.Route.StartTime.Format(time.RFC3339), colorReset,
		colorCyan, ev.Kind, colorReset,
		colorGreen, len(ev.Route.Points), colorReset,
		colorYellow, ev.Route.TotalDistance, colorReset)
	if ev.Route.Destination != "" {
		line += fmt.Sprintf(" %sdest=%s%s", colorMagenta, ev.Route.Destination, colorReset)
	}
	u.program.Send(logMsg{line: line})
	u.program.Send(routeMsg{ev: ev})
}

// Close releases subscriptions and shuts the program down.
func (u *UI) Close() error {
	u.sendSignal.Store(false)
	for _, unsub := range u.unsubs {
		unsub()
	}
	if u.program != nil {
		u.program.Send(tea.Quit())
	}
	if u.done != nil {
		<-u.done
	}
	return nil
}
