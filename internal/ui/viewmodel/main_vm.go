package viewmodel

import (
	"sync"

	"serialflash/internal/domain/models"
)

// RowView - строка таблицы прошивки.
type RowView struct {
	Offset   string // "0x1000"
	Label    string // Ожидаемый файл
	FileName string // Выбранный файл ("" - не выбран)
	Size     int
	Progress models.RowProgress
}

// MainView - снимок состояния главного экрана. Все флаги видимости
// выводятся из единственного режима сессии.
type MainView struct {
	Mode models.Mode
	Busy bool

	// Раздел программирования
	ShowProgramSection bool
	ShowBaudRates      bool
	ShowConnect        bool
	ShowDisconnect     bool
	ShowTrace          bool
	ShowErase          bool
	ShowFiles          bool
	ConnectEnabled     bool
	EraseEnabled       bool
	ProgramEnabled     bool
	ConnectedLabel     string // "Connected to device: <chip>"

	// Раздел консоли
	ShowConsoleSection bool
	ShowConsoleStart   bool
	ShowConsoleStop    bool
	ShowReset          bool
	ConsoleLabel       string

	// Alert - сообщение проверки строк ("" - скрыто)
	Alert string

	Rows []RowView
}

// MainViewModel хранит состояние главного экрана. Обновляется из горутин
// сессии и прошивки, поэтому доступ защищён мьютексом.
type MainViewModel struct {
	mu   sync.Mutex
	view MainView
}

// NewMainViewModel создаёт модель в состоянии Disconnected со строками раскладки.
func NewMainViewModel(rows []models.FlashRow) *MainViewModel {
	vm := &MainViewModel{}
	vm.SetRows(rows)
	vm.Apply(models.SessionState{Mode: models.ModeDisconnected})
	return vm
}

// Apply пересчитывает флаги по состоянию сессии.
func (vm *MainViewModel) Apply(st models.SessionState) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	v := &vm.view
	v.Mode = st.Mode
	v.Busy = st.Busy

	programming := st.Mode == models.ModeProgramming
	console := st.Mode == models.ModeConsole
	disconnected := st.Mode == models.ModeDisconnected

	v.ShowProgramSection = !console
	v.ShowBaudRates = disconnected
	v.ShowConnect = disconnected
	v.ShowDisconnect = programming
	// Трасса доступна, как только есть транспорт (в том числе после неудачного рукопожатия)
	v.ShowTrace = !console && (programming || st.HasDevice())
	v.ShowErase = programming
	v.ShowFiles = programming
	v.ConnectEnabled = disconnected && !st.Busy
	v.EraseEnabled = programming && !st.Busy
	v.ProgramEnabled = programming && !st.Busy

	v.ConnectedLabel = ""
	if programming {
		v.ConnectedLabel = "Connected to device: " + string(st.Chip)
	}

	v.ShowConsoleSection = !programming
	v.ShowConsoleStart = disconnected
	v.ShowConsoleStop = console
	v.ShowReset = console
	v.ConsoleLabel = ""
	if console && st.Device != nil {
		v.ConsoleLabel = "Console for: " + st.Device.String()
	}

	if disconnected && !st.HasDevice() {
		v.Alert = ""
	}
}

// SetRows заменяет строки таблицы, сбрасывая прогресс.
func (vm *MainViewModel) SetRows(rows []models.FlashRow) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.view.Rows = make([]RowView, len(rows))
	for i, r := range rows {
		vm.view.Rows[i] = RowView{
			Offset:   r.OffsetString(),
			Label:    r.Label,
			FileName: r.FileName,
			Size:     len(r.Image),
		}
	}
}

// SetAlert показывает сообщение проверки.
func (vm *MainViewModel) SetAlert(msg string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.view.Alert = msg
}

// ClearAlert скрывает сообщение проверки.
func (vm *MainViewModel) ClearAlert() {
	vm.SetAlert("")
}

// Begin переводит индикаторы строк в активное состояние.
func (vm *MainViewModel) Begin(rows int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.view.Rows {
		if i < rows {
			vm.view.Rows[i].Progress = models.RowProgress{Active: true}
		}
	}
}

// Update выставляет процент строки.
func (vm *MainViewModel) Update(row, percent int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if row >= 0 && row < len(vm.view.Rows) {
		vm.view.Rows[row].Progress.Percent = percent
	}
}

// End возвращает индикаторы в исходное состояние.
func (vm *MainViewModel) End() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.view.Rows {
		vm.view.Rows[i].Progress.Active = false
	}
}

// Snapshot возвращает копию состояния для отрисовки.
func (vm *MainViewModel) Snapshot() MainView {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	v := vm.view
	v.Rows = make([]RowView, len(vm.view.Rows))
	copy(v.Rows, vm.view.Rows)
	return v
}
