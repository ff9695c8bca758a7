package repl

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"loghelper/internal/app"
	"loghelper/internal/theme"
)

// maxMessages bounds the scrollback kept above the prompt.
const maxMessages = 200

type model struct {
	ctx        context.Context
	app        *app.App
	input      textinput.Model
	theme      theme.Theme
	history    []string
	historyPos int
	messages   []string
	quitting   bool
}

func newModel(ctx context.Context, application *app.App) model {
	th := theme.ForName(application.Config().Theme)

	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Focus()
	ti.Prompt = application.Current().Name() + "> "
	ti.PromptStyle = th.Prompt
	ti.CharLimit = 512
	ti.Width = 80

	return model{
		ctx:     ctx,
		app:     application,
		input:   ti,
		theme:   th,
		history: make([]string, 0, 32),
		messages: []string{
			th.Message.Render("loghelper shell ready. Type 'help' for assistance."),
		},
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		case tea.KeyUp:
			return m.recall(-1), nil
		case tea.KeyDown:
			return m.recall(1), nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	for _, message := range m.messages {
		b.WriteString(message)
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	if !m.quitting {
		b.WriteString("\n")
	}
	return b.String()
}

// recall moves through the command history; moving past the newest entry
// clears the input.
func (m model) recall(delta int) model {
	if len(m.history) == 0 {
		return m
	}
	pos := m.historyPos + delta
	if pos < 0 {
		pos = 0
	}
	if pos >= len(m.history) {
		m.historyPos = len(m.history)
		m.input.SetValue("")
		return m
	}
	m.historyPos = pos
	m.input.SetValue(m.history[pos])
	m.input.CursorEnd()
	return m
}

func (m model) handleSubmit() (tea.Model, tea.Cmd) {
	command := strings.TrimSpace(m.input.Value())
	if command != "" {
		m.history = append(m.history, command)
	}
	m.historyPos = len(m.history)
	m.input.SetValue("")

	if command == "" {
		return m, nil
	}

	m.appendMessage(m.theme.Prompt.Render(m.input.Prompt) + command)

	result, err := m.app.Execute(m.ctx, command)
	if result.Message != "" {
		m.appendMessage(result.Message)
	}
	if err != nil {
		m.appendMessage(m.theme.Error.Render(err.Error()))
		return m, nil
	}

	if result.Quit {
		m.quitting = true
		return m, tea.Quit
	}

	m.input.Prompt = m.app.Current().Name() + "> "
	return m, nil
}

func (m *model) appendMessage(message string) {
	m.messages = append(m.messages, message)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}
