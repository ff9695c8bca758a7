package theme

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"loghelper/internal/severity"
)

// Theme captures the lipgloss styles used for coloured console output and
// the interactive shell.
type Theme struct {
	Debug    lipgloss.Style
	Info     lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Critical lipgloss.Style
	Prompt   lipgloss.Style
	Message  lipgloss.Style
}

// Default is the canonical name of the built-in default theme.
const Default = "default"

var themes = map[string]Theme{
	Default: {
		Debug:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Message:  lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
	},
	"high_contrast": {
		Debug:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196")),
		Prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Message:  lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
	},
}

// Names returns the sorted list of available theme names.
func Names() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForName returns the theme with the provided name, defaulting if unknown.
func ForName(name string) Theme {
	key := strings.ToLower(strings.TrimSpace(name))
	if theme, ok := themes[key]; ok {
		return theme
	}
	return themes[Default]
}

// ForLevel picks the style for a severity; levels between the named ones use
// the style of the named level below them.
func (t Theme) ForLevel(level severity.Level) lipgloss.Style {
	switch {
	case level >= severity.Critical:
		return t.Critical
	case level >= severity.Error:
		return t.Error
	case level >= severity.Warning:
		return t.Warning
	case level >= severity.Info:
		return t.Info
	default:
		return t.Debug
	}
}
