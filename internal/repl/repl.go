package repl

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"loghelper/internal/app"
)

// Run starts the interactive shell session.
func Run(ctx context.Context, application *app.App) error {
	program := tea.NewProgram(newModel(ctx, application), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
