package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/edgelet/hostbridge/hostval"
	"github.com/edgelet/hostbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const outcomeHistory = 5

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	filename string
	env      map[string]string
	events   []runtime.Event
	outcomes []string
	inputs   []textinput.Model
	stats    string
	inFlight int
	selected int
	focusIdx int
	width    int
	state    modelState
}

type modelState int

const (
	stateSelectEvent modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename string, env map[string]string) *interactiveModel {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return &interactiveModel{
		filename: filename,
		env:      env,
		events:   []runtime.Event{runtime.EventFetch, runtime.EventScheduled, runtime.EventQueue},
		width:    width,
		state:    stateSelectEvent,
	}
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
}

type dispatchMsg struct {
	err    error
	event  runtime.Event
	result string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadRuntime, tick())
}

func (m *interactiveModel) loadRuntime() tea.Msg {
	ctx := context.Background()

	cfg, err := runtime.LoadConfig()
	if err != nil {
		return loadedMsg{err: err}
	}
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	rt, err := runtime.New(ctx, data, cfg, m.env, nil)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.rt != nil {
				_ = m.rt.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectEvent && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectEvent && m.selected < len(m.events)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectEvent:
				m.prepareInputs()
				m.state = stateInputArgs

			case stateInputArgs:
				m.inFlight++
				m.state = stateShowResult
				return m, m.dispatch()

			case stateShowResult:
				m.state = stateSelectEvent
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelectEvent {
				m.state = stateSelectEvent
				m.inputs = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt

	case dispatchMsg:
		m.inFlight--
		line := fmt.Sprintf("%s: %s", msg.event, msg.result)
		if msg.err != nil {
			line = fmt.Sprintf("%s: error: %v", msg.event, msg.err)
		}
		m.outcomes = append([]string{line}, m.outcomes...)
		if len(m.outcomes) > outcomeHistory {
			m.outcomes = m.outcomes[:outcomeHistory]
		}

	case tickMsg:
		if m.rt != nil {
			s := m.rt.Stats()
			m.stats = fmt.Sprintf("heap %d live / %d slots (max %d) • %d in flight",
				s.Live, s.Slots, s.MaxSlots, m.inFlight)
		}
		return m, tick()
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	labels := inputLabels(m.events[m.selected])
	m.inputs = make([]textinput.Model, len(labels))
	for i, label := range labels {
		ti := textinput.New()
		ti.Prompt = label + ": "
		ti.Width = 50
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func inputLabels(event runtime.Event) []string {
	switch event {
	case runtime.EventFetch:
		return []string{"url", "method", "body"}
	case runtime.EventQueue:
		return []string{"body"}
	default:
		return nil
	}
}

func (m *interactiveModel) dispatch() tea.Cmd {
	event := m.events[m.selected]
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}

	return func() tea.Msg {
		if m.rt == nil {
			return dispatchMsg{event: event, err: fmt.Errorf("runtime not loaded")}
		}

		payload := hostval.NewObject()
		labels := inputLabels(event)
		for i, label := range labels {
			if values[i] != "" {
				payload.Set(label, values[i])
			}
		}

		result, err := m.rt.Dispatch(context.Background(), event, payload)
		if err != nil {
			return dispatchMsg{event: event, err: err}
		}
		text, serr := hostval.Stringify(result)
		if serr != nil {
			text = fmt.Sprintf("%v", result)
		}
		return dispatchMsg{event: event, result: text}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.rt == nil {
		return "Loading guest module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("hostbridge"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(m.stats))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectEvent:
		b.WriteString("Fire an event:\n\n")
		for i, event := range m.events {
			line := "  " + string(event)
			if i == m.selected {
				line = selectedStyle.Render("> " + string(event))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter fire • q quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Event %s\n\n", eventStyle.Render(string(m.events[m.selected]))))
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter dispatch • esc back"))

	case stateShowResult:
		b.WriteString("Outcomes:\n\n")
		if len(m.outcomes) == 0 {
			b.WriteString(helpStyle.Render("  dispatching..."))
			b.WriteString("\n")
		}
		for _, line := range m.outcomes {
			if strings.Contains(line, "error:") {
				b.WriteString(errorStyle.Render("  " + truncate(line, m.width-4)))
			} else {
				b.WriteString(resultStyle.Render("  " + truncate(line, m.width-4)))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • esc back • q quit"))
	}

	return b.String()
}

func truncate(s string, max int) string {
	if max > 3 && len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func runInteractive(filename string, env map[string]string) error {
	p := tea.NewProgram(newInteractiveModel(filename, env), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
