package ui

import (
	"context"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/notebook/internal/filesync"
)

// Picker asks for a directory through a text input overlay. It implements
// filesync.DirectoryPicker and must be bound to a running program.
type Picker struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ filesync.DirectoryPicker = (*Picker)(nil)

// NewPicker returns an unbound picker.
func NewPicker() *Picker {
	return &Picker{}
}

// Bind routes requests to p.
func (p *Picker) Bind(program *tea.Program) {
	p.bind(program.Send)
}

func (p *Picker) bind(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

type pickReply struct {
	path     string
	canceled bool
}

type pickRequestMsg struct {
	purpose filesync.Purpose
	reply   chan pickReply
}

// PickDirectory shows the overlay and blocks until the user answers.
func (p *Picker) PickDirectory(ctx context.Context, purpose filesync.Purpose) (string, error) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return "", filesync.ErrPickCanceled
	}

	reply := make(chan pickReply, 1)
	send(pickRequestMsg{purpose: purpose, reply: reply})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-reply:
		path := strings.TrimSpace(r.path)
		if r.canceled || path == "" {
			return "", filesync.ErrPickCanceled
		}
		return filesync.StaticPicker(path).PickDirectory(ctx, purpose)
	}
}
