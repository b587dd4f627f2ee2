package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"serialflash/internal/infrastructure/terminal"
)

// Updatable - контроллер, сообщающий об изменениях модели представления.
type Updatable interface {
	Controller
	SetOnUpdate(func())
}

// Run запускает интерфейс и блокируется до выхода оператора.
func Run(ctx context.Context, ctrl Updatable, term *terminal.Buffer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(ctx, ctrl, term), tea.WithAltScreen(), tea.WithContext(ctx))

	refresh := func() { go p.Send(refreshMsg{}) }
	ctrl.SetOnUpdate(refresh)
	term.OnChange(refresh)
	defer ctrl.SetOnUpdate(nil)
	defer term.OnChange(nil)

	_, err := p.Run()
	return err
}
