// Package tui is a terminal dashboard for a running bringup.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/go-go-golems/bringup/pkg/launch"
)

const maxExits = 8

type keyMap struct {
	Quit       key.Binding
	TogglePlan key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		TogglePlan: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "toggle plan")),
	}
}

type Model struct {
	plan     *launch.Plan
	showPlan bool
	snap     *events.StateSnapshot
	exits    []string

	keys    keyMap
	spinner spinner.Model
	theme   Theme
	width   int
}

// NewModel takes the plan the services were started from, if known.
func NewModel(plan *launch.Plan) Model {
	return Model{
		plan:     plan,
		showPlan: plan != nil,
		keys:     defaultKeys(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:    DefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd { return m.spinner.Tick }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(v, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(v, m.keys.TogglePlan):
			m.showPlan = !m.showPlan && m.plan != nil
		}
		return m, nil
	case SnapshotMsg:
		m.snap = &v.Snapshot
		return m, nil
	case ExitMsg:
		line := fmt.Sprintf("%s %s (pid %d): %s", v.Exit.When.Format("15:04:05"), v.Exit.Name, v.Exit.PID, v.Exit.Reason)
		m.exits = append(m.exits, line)
		if len(m.exits) > maxExits {
			m.exits = m.exits[len(m.exits)-maxExits:]
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("bringup"))
	if m.plan != nil {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("  model=%s lidar=%s", m.plan.Model, m.plan.Lidar)))
	}
	b.WriteString("\n\n")

	if m.showPlan {
		b.WriteString(m.theme.Box.Render(m.planView()))
		b.WriteString("\n")
	}
	b.WriteString(m.servicesView())

	if len(m.exits) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.Section.Render("Exits"))
		b.WriteString("\n")
		for _, e := range m.exits {
			b.WriteString(m.theme.Dead.Render(e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render(fmt.Sprintf("%s %s  %s %s",
		m.keys.TogglePlan.Help().Key, m.keys.TogglePlan.Help().Desc,
		m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc)))
	return b.String()
}

func (m Model) planView() string {
	var b strings.Builder
	b.WriteString(m.theme.Section.Render("Plan"))
	b.WriteString("\n")
	for _, d := range m.plan.Directives {
		var line string
		switch d.Kind {
		case launch.KindDeclareArgument:
			line = fmt.Sprintf("arg     %-14s %s", d.Name, d.Value)
		case launch.KindIncludeSubplan:
			line = fmt.Sprintf("include %-14s %s", d.Name, d.Source)
		case launch.KindLaunchProcess:
			line = fmt.Sprintf("process %-14s %s/%s %s", d.Name, d.Package, d.Executable, strings.Join(d.Args, " "))
		}
		if !d.Enabled() {
			line = m.theme.Disabled.Render(line) + m.theme.Muted.Render(fmt.Sprintf("  (%s=%s)", d.Condition.Argument, d.Condition.Value))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.plan.LidarFallback {
		b.WriteString(m.theme.Warn.Render(fmt.Sprintf("lidar %q not recognized, default driver selected", m.plan.Lidar)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) servicesView() string {
	var b strings.Builder
	b.WriteString(m.theme.Section.Render("Services"))
	b.WriteString("\n")

	switch {
	case m.snap == nil:
		b.WriteString(m.spinner.View() + " loading state\n")
		return b.String()
	case !m.snap.Exists:
		b.WriteString(m.theme.Muted.Render("stopped (no state)") + "\n")
		return b.String()
	case m.snap.Error != "":
		b.WriteString(m.theme.Dead.Render("state error: "+m.snap.Error) + "\n")
		return b.String()
	case m.snap.State == nil:
		return b.String()
	}

	nameW := 0
	for _, svc := range m.snap.State.Services {
		nameW = max(nameW, lipgloss.Width(svc.Name))
	}
	for _, svc := range m.snap.State.Services {
		status := m.theme.Dead.Render("dead")
		if m.snap.Alive[svc.Name] {
			status = m.theme.Running.Render("running")
		}
		devices := ""
		if len(svc.Devices) > 0 {
			devices = m.theme.Muted.Render(" " + strings.Join(svc.Devices, ","))
		}
		b.WriteString(fmt.Sprintf("%-*s  pid %-7d %s%s\n", nameW, svc.Name, svc.PID, status, devices))
	}
	return b.String()
}
