package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/image"
	"serialflash/internal/service/connection"
	"serialflash/internal/service/flash"
	"serialflash/internal/service/session"
	"serialflash/internal/ui/viewmodel"
)

// ImageLoader читает файл образа.
type ImageLoader func(path string) (*image.Image, error)

// Deps - зависимости главного контроллера.
type Deps struct {
	Session     *session.Service
	Flash       *flash.Service
	Connections *connection.ConnectionService // может быть nil
	Output      ports.OutputSink
	Logger      ports.Logger
	LoadImage   ImageLoader
}

// MainController принимает действия оператора и передаёт их сессии
// и сервису прошивки. Ошибки выводятся в терминал строкой "Error: ...".
type MainController struct {
	vm        *viewmodel.MainViewModel
	session   *session.Service
	flash     *flash.Service
	conn      *connection.ConnectionService
	out       ports.OutputSink
	log       ports.Logger
	loadImage ImageLoader

	mu       sync.Mutex
	rows     []models.FlashRow
	onUpdate func()
}

// NewMainController создает контроллер и подписывает модель представления
// на изменения сессии.
func NewMainController(deps Deps) *MainController {
	rows := models.DefaultLayout()
	loader := deps.LoadImage
	if loader == nil {
		loader = image.Load
	}
	c := &MainController{
		vm:        viewmodel.NewMainViewModel(rows),
		session:   deps.Session,
		flash:     deps.Flash,
		conn:      deps.Connections,
		out:       deps.Output,
		log:       deps.Logger.Named("controller"),
		loadImage: loader,
		rows:      rows,
	}
	c.session.OnChange(func(st models.SessionState) {
		c.vm.Apply(st)
		c.notifyUpdate()
	})
	c.vm.Apply(c.session.State())
	return c
}

// ViewModel возвращает модель представления.
func (c *MainController) ViewModel() *viewmodel.MainViewModel {
	return c.vm
}

// SetOnUpdate устанавливает callback для обновления пользовательского интерфейса.
func (c *MainController) SetOnUpdate(callback func()) {
	c.mu.Lock()
	c.onUpdate = callback
	c.mu.Unlock()
}

// Connect захватывает устройство и выполняет рукопожатие.
func (c *MainController) Connect(ctx context.Context) error {
	chip, err := c.session.Connect(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.log.Info("connected to %s", chip)

	if c.conn != nil {
		if err := c.conn.RememberConnection(c.session.State(), c.session.Config()); err != nil {
			c.log.Warn("save profile: %v", err)
		}
	}
	return nil
}

// Disconnect завершает сессию и очищает терминал.
func (c *MainController) Disconnect(ctx context.Context) error {
	err := c.session.Teardown(ctx)
	if errors.Is(err, models.ErrBusy) {
		return c.fail(err)
	}
	c.out.Clean()
	c.vm.ClearAlert()
	c.notifyUpdate()
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// Trace выводит трассу обмена транспорта в терминал.
func (c *MainController) Trace() {
	trace := c.session.Trace()
	if trace == "" {
		c.out.WriteLine("Trace is empty")
		return
	}
	for _, line := range strings.Split(strings.TrimRight(trace, "\n"), "\n") {
		c.out.WriteLine(line)
	}
}

// Reset перезапускает чип импульсом DTR.
func (c *MainController) Reset(ctx context.Context) error {
	if err := c.session.ResetPulse(ctx); err != nil {
		return c.fail(err)
	}
	return nil
}

// Erase стирает флеш-память.
func (c *MainController) Erase(ctx context.Context) error {
	if err := c.session.Erase(ctx); err != nil {
		return c.fail(err)
	}
	return nil
}

// Program проверяет строки и прошивает их. Ошибка проверки показывается
// в поле предупреждения и не затрагивает устройство.
func (c *MainController) Program(ctx context.Context) error {
	rows := c.Rows()
	if err := flash.Validate(rows); err != nil {
		c.vm.SetAlert(err.Error())
		c.notifyUpdate()
		return err
	}
	c.vm.ClearAlert()
	c.notifyUpdate()

	err := c.session.RunExclusive(func(prog ports.Programmer, st models.SessionState) error {
		target := flash.Target{Programmer: prog, Chip: st.Chip}
		if st.Device != nil {
			target.PortName = st.Device.PortName
		}
		return c.flash.Flash(ctx, rows, target, &progressAdapter{vm: c.vm, notify: c.notifyUpdate})
	})
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// StartConsole запускает консоль и блокируется до её остановки или конца потока.
func (c *MainController) StartConsole(ctx context.Context, baudRate int) error {
	if err := c.session.StartConsole(ctx, baudRate); err != nil {
		return c.fail(err)
	}
	return nil
}

// StopConsole останавливает консоль и очищает терминал.
func (c *MainController) StopConsole(ctx context.Context) error {
	return c.Disconnect(ctx)
}

// WriteConsole передаёт ввод оператора устройству.
func (c *MainController) WriteConsole(p []byte) error {
	if _, err := c.session.WriteConsole(p); err != nil {
		return err
	}
	return nil
}

// Rows возвращает копию строк раскладки.
func (c *MainController) Rows() []models.FlashRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]models.FlashRow, len(c.rows))
	copy(rows, c.rows)
	return rows
}

// SelectFile загружает файл образа в строку row (с нуля).
func (c *MainController) SelectFile(row int, path string) error {
	img, err := c.loadImage(path)
	if err != nil {
		return c.fail(err)
	}
	return c.SetImage(row, img.FileName, img.Data)
}

// SetImage задаёт содержимое строки (например, загруженное через веб-интерфейс).
func (c *MainController) SetImage(row int, fileName string, data []byte) error {
	c.mu.Lock()
	if row < 0 || row >= len(c.rows) {
		c.mu.Unlock()
		return fmt.Errorf("row %d out of range", row+1)
	}
	c.rows[row].FileName = fileName
	c.rows[row].Image = data
	rows := append([]models.FlashRow(nil), c.rows...)
	c.mu.Unlock()

	c.vm.SetRows(rows)
	c.notifyUpdate()
	return nil
}

// ClearFile сбрасывает выбранный файл строки.
func (c *MainController) ClearFile(row int) error {
	return c.SetImage(row, "", nil)
}

// fail логирует ошибку и выводит её оператору.
func (c *MainController) fail(err error) error {
	c.log.Error("%v", err)
	c.out.WriteLine("Error: " + err.Error())
	c.notifyUpdate()
	return err
}

// notifyUpdate вызывает callback для обновления UI, если он установлен.
func (c *MainController) notifyUpdate() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// progressAdapter передаёт прогресс в модель и перерисовывает интерфейс.
type progressAdapter struct {
	vm     *viewmodel.MainViewModel
	notify func()
}

func (p *progressAdapter) Begin(rows int) {
	p.vm.Begin(rows)
	p.notify()
}

func (p *progressAdapter) Update(row, percent int) {
	p.vm.Update(row, percent)
	p.notify()
}

func (p *progressAdapter) End() {
	p.vm.End()
	p.notify()
}
