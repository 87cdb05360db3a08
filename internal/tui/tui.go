// Package tui provides the terminal user interface: a connection list and a
// chat view streaming replies from the active connection.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"chatterapi/config"
	"chatterapi/internal/generation"
	"chatterapi/internal/modellist"
	"chatterapi/internal/notify"
	"chatterapi/internal/templates"
)

// Deps are the collaborators the interface drives
type Deps struct {
	Manager  *config.Manager
	Registry *templates.Registry
	Service  *generation.Service
	Notifier *notify.Notifier
	Fetcher  *modellist.Fetcher
	Logger   zerolog.Logger
}

// Run starts the TUI interface
func Run(deps Deps) error {
	if !isTerminal() {
		return fmt.Errorf("chatterapi TUI requires a terminal. Use subcommands for non-interactive mode")
	}

	m := NewModel(deps)

	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
	}
	if os.Getenv("TERM") != "" {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(m, opts...)
	_, err := p.Run()

	// leave no generation running behind the closed screen
	m.chat.Abort()
	return err
}

// isTerminal checks if stdin is a terminal
func isTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
