// Package tui is a full-screen chat shell over the menu assistant.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the chat screen until the user quits.
func Run(ctx context.Context, asker Asker, summary string) error {
	p := tea.NewProgram(New(ctx, asker, summary), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
