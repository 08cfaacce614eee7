package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits or the context in
// opts is canceled.
func Run(opts Options) error {
	model := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(model, programOpts...)
	if opts.Picker != nil {
		opts.Picker.Bind(p)
	}
	_, err := p.Run()
	return err
}
