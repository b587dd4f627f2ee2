// Package tui - интерактивный терминальный интерфейс прошивки.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"serialflash/internal/domain/models"
	"serialflash/internal/infrastructure/terminal"
	"serialflash/internal/ui/viewmodel"
)

const terminalLines = 12

// Controller - действия оператора, доступные интерфейсу.
type Controller interface {
	ViewModel() *viewmodel.MainViewModel
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Trace()
	Reset(ctx context.Context) error
	Erase(ctx context.Context) error
	Program(ctx context.Context) error
	StartConsole(ctx context.Context, baudRate int) error
	StopConsole(ctx context.Context) error
	SelectFile(row int, path string) error
	ClearFile(row int) error
}

// --- Сообщения ---

// refreshMsg - модель представления или терминал изменились.
type refreshMsg struct{}

// opDoneMsg - действие оператора завершилось.
type opDoneMsg struct {
	op  string
	err error
}

// Model - модель bubbletea главного экрана.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	term   *terminal.Buffer
	view   viewmodel.MainView
	cursor int // выбранная строка таблицы
	width  int

	running map[string]bool // выполняющиеся действия
	status  string

	filepicker       filepicker.Model
	filePickerActive bool

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

// NewModel создаёт модель. term - буфер, в который пишет сессия.
func NewModel(ctx context.Context, ctrl Controller, term *terminal.Buffer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	styles := DefaultStyles()
	s.Style = styles.Warning

	fp := filepicker.New()
	fp.AllowedTypes = []string{".bin", ".hex", ".ihex"}
	fp.DirAllowed = true
	fp.FileAllowed = true
	fp.ShowSize = true
	fp.ShowPermissions = false
	fp.Height = 12
	if cwd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = cwd
	}

	return Model{
		ctx:        ctx,
		ctrl:       ctrl,
		term:       term,
		view:       ctrl.ViewModel().Snapshot(),
		running:    make(map[string]bool),
		filepicker: fp,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    s,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		styles:     styles,
	}
}

// Init запускает спиннер.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update обрабатывает сообщения.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.filePickerActive {
		return m.updateFilePicker(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.view = m.ctrl.ViewModel().Snapshot()
		return m, nil

	case opDoneMsg:
		delete(m.running, msg.op)
		m.view = m.ctrl.ViewModel().Snapshot()
		if msg.err != nil {
			m.status = ""
		} else {
			m.status = msg.op + " done"
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(v.Rows)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Connect):
		if v.ShowConnect && v.ConnectEnabled {
			return m.run("connect", m.ctrl.Connect)
		}

	case key.Matches(msg, m.keys.Disconnect):
		if v.ShowDisconnect && !v.Busy {
			return m.run("disconnect", m.ctrl.Disconnect)
		}

	case key.Matches(msg, m.keys.Trace):
		if v.ShowTrace {
			return m.run("trace", func(context.Context) error {
				m.ctrl.Trace()
				return nil
			})
		}

	case key.Matches(msg, m.keys.Erase):
		if v.ShowErase && v.EraseEnabled {
			return m.run("erase", m.ctrl.Erase)
		}

	case key.Matches(msg, m.keys.Program):
		if v.ShowFiles && v.ProgramEnabled {
			return m.run("program", m.ctrl.Program)
		}

	case key.Matches(msg, m.keys.SelectFile):
		if v.ShowFiles && !v.Busy {
			m.filePickerActive = true
			return m, m.filepicker.Init()
		}

	case key.Matches(msg, m.keys.ClearFile):
		if v.ShowFiles && !v.Busy {
			row := m.cursor
			return m.run("clear", func(context.Context) error { return m.ctrl.ClearFile(row) })
		}

	case key.Matches(msg, m.keys.StartConsole):
		if v.ShowConsoleStart && v.ConnectEnabled {
			return m.run("console", func(ctx context.Context) error {
				return m.ctrl.StartConsole(ctx, 0)
			})
		}

	case key.Matches(msg, m.keys.StopConsole):
		if v.ShowConsoleStop {
			return m.run("stop", m.ctrl.StopConsole)
		}

	case key.Matches(msg, m.keys.Reset):
		if v.ShowReset {
			return m.run("reset", m.ctrl.Reset)
		}
	}
	return m, nil
}

func (m Model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Quit) {
			m.filePickerActive = false
			return m, nil
		}
	case refreshMsg, opDoneMsg, spinner.TickMsg:
		// Состояние сессии обновляется и под выбором файла
		m.filePickerActive = false
		next, cmd := m.Update(msg)
		nm := next.(Model)
		nm.filePickerActive = true
		return nm, cmd
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.filePickerActive = false
		row := m.cursor
		return m.run("select", func(context.Context) error { return m.ctrl.SelectFile(row, path) })
	}
	if didSelect, _ := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.filePickerActive = false
		m.status = "Invalid file type selected (must be .bin or .hex)"
		return m, nil
	}

	return m, cmd
}

// run выполняет действие контроллера вне цикла событий.
func (m Model) run(op string, fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	if m.running[op] {
		return m, nil
	}
	m.running[op] = true
	m.status = ""
	ctx := m.ctx
	return m, func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// View отрисовывает экран.
func (m Model) View() string {
	if m.filePickerActive {
		content := m.styles.Title.Render(fmt.Sprintf("Select image for row %d", m.cursor+1)) + "\n" +
			m.styles.Muted.Render("Directory: "+m.filepicker.CurrentDirectory) + "\n\n" +
			m.filepicker.View() + "\n\n" +
			m.styles.Muted.Render("↑/↓ navigate • enter select • esc cancel")
		return m.styles.App.Render(content)
	}

	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")

	if m.view.ShowProgramSection {
		b.WriteString(m.viewProgram())
	}
	if m.view.ShowConsoleSection {
		b.WriteString(m.viewConsole())
	}

	b.WriteString(m.styles.Section.Render("Terminal"))
	b.WriteString("\n")
	lines := m.term.Tail(terminalLines)
	b.WriteString(m.styles.Terminal.Render(strings.Join(padLines(lines, terminalLines), "\n")))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.styles.Muted.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))
	return m.styles.App.Render(b.String())
}

func (m Model) renderTitleBar() string {
	parts := []string{m.styles.Title.Render("serialflash")}
	v := m.view
	switch {
	case v.Busy:
		parts = append(parts, m.spinner.View()+" "+m.styles.Warning.Render("Working..."))
	case v.Mode == models.ModeProgramming:
		parts = append(parts, m.styles.Success.Render("● "+v.ConnectedLabel))
	case v.Mode == models.ModeConsole:
		parts = append(parts, m.styles.Success.Render("● "+v.ConsoleLabel))
	default:
		parts = append(parts, m.styles.Offline.Render("○ Disconnected"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewProgram() string {
	var b strings.Builder
	v := m.view
	b.WriteString(m.styles.Section.Render("Program"))
	b.WriteString("\n")

	var actions []string
	if v.ShowConnect {
		actions = append(actions, "[c] Connect")
	}
	if v.ShowDisconnect {
		actions = append(actions, "[d] Disconnect")
	}
	if v.ShowTrace {
		actions = append(actions, "[t] Trace")
	}
	if v.ShowErase {
		actions = append(actions, "[e] Erase Flash")
	}
	b.WriteString(m.styles.Muted.Render(strings.Join(actions, "  ")))
	b.WriteString("\n")

	if !v.ShowFiles {
		return b.String()
	}

	for i, row := range v.Rows {
		file := row.FileName
		if file == "" {
			file = m.styles.Muted.Render("<" + row.Label + ">")
		}
		line := fmt.Sprintf("%-8s %-32s ", row.Offset, file)
		if row.Progress.Active {
			line += m.bar.ViewAs(float64(row.Progress.Percent) / 100)
		}
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Row.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if v.Alert != "" {
		b.WriteString(m.styles.AlertText.Render(v.Alert))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render("[p] Program"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewConsole() string {
	var b strings.Builder
	v := m.view
	b.WriteString(m.styles.Section.Render("Console"))
	b.WriteString("\n")
	if v.ConsoleLabel != "" {
		b.WriteString(v.ConsoleLabel)
		b.WriteString("\n")
	}
	var actions []string
	if v.ShowConsoleStart {
		actions = append(actions, "[o] Start")
	}
	if v.ShowConsoleStop {
		actions = append(actions, "[s] Stop")
	}
	if v.ShowReset {
		actions = append(actions, "[r] Reset")
	}
	b.WriteString(m.styles.Muted.Render(strings.Join(actions, "  ")))
	b.WriteString("\n")
	return b.String()
}

func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}
