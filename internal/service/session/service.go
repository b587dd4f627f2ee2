package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/service/console"
)

// Deps - внешние зависимости сессии.
type Deps struct {
	Devices     ports.DeviceProvider
	Transports  ports.TransportFactory
	Programmers ports.ProgrammerFactory
	Console     *console.Service
	Output      ports.OutputSink
	Logger      ports.Logger
}

// Service - сессия одного последовательного устройства.
//
// Владеет устройством, транспортом, программатором и идентификатором чипа.
// Режим всегда ровно один: Disconnected, Programming или Console.
// Рукопожатие, стирание, прошивка и отключение помечают сессию занятой;
// повторный запрос в это время получает models.ErrBusy.
type Service struct {
	cfg          models.Config
	devices      ports.DeviceProvider
	newTransport ports.TransportFactory
	newLoader    ports.ProgrammerFactory
	console      *console.Service
	out          ports.OutputSink
	log          ports.Logger
	sleep        func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	mode        models.Mode
	device      *models.DeviceHandle
	transport   ports.Transport
	programmer  ports.Programmer
	chip        models.ChipIdentity
	tracing     bool
	busy        bool
	stopConsole context.CancelFunc
	onChange    func(models.SessionState)
}

// NewService создает новую сессию в режиме Disconnected.
func NewService(cfg models.Config, deps Deps) *Service {
	log := deps.Logger.Named("session")
	cs := deps.Console
	if cs == nil {
		cs = console.NewService(deps.Logger.Named("console"))
	}
	return &Service{
		cfg:          cfg.WithDefaults(),
		devices:      deps.Devices,
		newTransport: deps.Transports,
		newLoader:    deps.Programmers,
		console:      cs,
		out:          deps.Output,
		log:          log,
		sleep:        sleepContext,
		mode:         models.ModeDisconnected,
	}
}

// Config возвращает действующую конфигурацию сессии.
func (s *Service) Config() models.Config {
	return s.cfg
}

// OnChange регистрирует наблюдателя изменений состояния (режим, занятость, устройство).
func (s *Service) OnChange(fn func(models.SessionState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Service) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.State())
	}
}

// State возвращает снимок состояния.
func (s *Service) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.SessionState{
		Mode:    s.mode,
		Chip:    s.chip,
		Busy:    s.busy,
		Tracing: s.tracing,
	}
	if s.device != nil {
		dev := *s.device
		st.Device = &dev
	}
	return st
}

// Connect захватывает устройство (если ещё не захвачено) и выполняет рукопожатие.
// При неудаче режим остаётся Disconnected, устройство и транспорт сохраняются
// для повторной попытки.
func (s *Service) Connect(ctx context.Context) (models.ChipIdentity, error) {
	if err := s.beginEntry(); err != nil {
		return "", err
	}
	defer s.release()

	transport, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}

	prog, err := s.newLoader(ports.LoaderOptions{
		Transport:    transport,
		BaudRate:     s.cfg.FlashBaudRate,
		Terminal:     s.out,
		DebugLogging: s.cfg.DebugLogging,
	})
	if err != nil {
		return "", &models.HandshakeError{Err: err}
	}

	transport.SetTracing(true)
	s.mu.Lock()
	s.tracing = true
	s.mu.Unlock()

	chip, err := prog.Main(ctx)
	if err != nil {
		s.log.Warn("handshake with %s failed: %v", transport.Device(), err)
		// Порт закрываем, чтобы повторная попытка могла открыть его заново.
		if derr := transport.Disconnect(); derr != nil {
			s.log.Warn("disconnect after failed handshake: %v", derr)
		}
		return "", &models.HandshakeError{Err: err}
	}

	s.mu.Lock()
	s.programmer = prog
	s.chip = chip
	s.mode = models.ModeProgramming
	s.mu.Unlock()

	s.log.Info("settings done for: %s", chip)
	return chip, nil
}

// StartConsole захватывает устройство, подключается на скорости baudRate
// (0 - скорость консоли из конфигурации) и пересылает поток в терминал,
// пока поток не закончится или не будет вызван Teardown.
//
// Естественное завершение потока не выполняет Teardown.
func (s *Service) StartConsole(ctx context.Context, baudRate int) error {
	if baudRate <= 0 {
		baudRate = s.cfg.ConsoleBaudRate
	}
	if err := s.beginEntry(); err != nil {
		return err
	}

	transport, err := s.acquire(ctx)
	if err != nil {
		s.release()
		return err
	}
	if err := transport.Connect(ctx, baudRate); err != nil {
		s.release()
		return &models.AcquisitionError{Port: transport.Device().PortName, Err: err}
	}

	consoleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.mode = models.ModeConsole
	s.stopConsole = cancel
	s.busy = false
	s.mu.Unlock()
	s.notify()

	s.log.Info("console on %s at %d baud", transport.Device(), baudRate)
	return s.console.Stream(consoleCtx, transport, s.out)
}

// WriteConsole передаёт ввод оператора в устройство в режиме консоли.
func (s *Service) WriteConsole(p []byte) (int, error) {
	s.mu.Lock()
	transport, mode := s.transport, s.mode
	s.mu.Unlock()

	if mode != models.ModeConsole || transport == nil {
		return 0, models.ErrNotConnected
	}
	return transport.Write(p)
}

// Erase стирает флеш-память. Допустимо только в режиме Programming.
// Ошибка не меняет режим.
func (s *Service) Erase(ctx context.Context) error {
	return s.RunExclusive(func(prog ports.Programmer, _ models.SessionState) error {
		s.log.Info("erasing flash")
		return prog.EraseFlash(ctx)
	})
}

// RunExclusive выполняет fn с программатором сессии, помечая сессию занятой.
// Допустимо только в режиме Programming.
func (s *Service) RunExclusive(fn func(prog ports.Programmer, st models.SessionState) error) error {
	s.mu.Lock()
	if s.mode != models.ModeProgramming || s.programmer == nil {
		s.mu.Unlock()
		return models.ErrNotConnected
	}
	if s.busy {
		s.mu.Unlock()
		return models.ErrBusy
	}
	s.busy = true
	prog := s.programmer
	st := models.SessionState{Mode: s.mode, Chip: s.chip, Tracing: s.tracing, Busy: true}
	if s.device != nil {
		dev := *s.device
		st.Device = &dev
	}
	s.mu.Unlock()
	s.notify()

	defer s.release()
	return fn(prog, st)
}

// ResetPulse опускает и поднимает DTR, перезапуская чип.
// Без транспорта ничего не делает.
func (s *Service) ResetPulse(ctx context.Context) error {
	s.mu.Lock()
	transport, busy := s.transport, s.busy
	s.mu.Unlock()

	if transport == nil {
		return nil
	}
	if busy {
		return models.ErrBusy
	}
	if err := transport.SetDTR(false); err != nil {
		return fmt.Errorf("set DTR low: %w", err)
	}
	if err := s.sleep(ctx, s.cfg.ResetPulse); err != nil {
		return err
	}
	if err := transport.SetDTR(true); err != nil {
		return fmt.Errorf("set DTR high: %w", err)
	}
	return nil
}

// Trace возвращает трассу обмена транспорта ("" без транспорта).
func (s *Service) Trace() string {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()

	if transport == nil {
		return ""
	}
	return transport.ReturnTrace()
}

// Teardown отключает транспорт и возвращает сессию в Disconnected.
//
// В режиме консоли после отключения ждёт освобождения порта (не дольше
// UnlockTimeout), чтобы следующий захват не столкнулся с незавершённым
// отключением. Состояние очищается даже при ошибке отключения.
// Повторный вызов безопасен.
func (s *Service) Teardown(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return models.ErrBusy
	}
	s.busy = true
	mode, transport, cancel := s.mode, s.transport, s.stopConsole
	s.stopConsole = nil
	s.mu.Unlock()
	s.notify()

	if cancel != nil {
		cancel()
	}

	var disconnectErr error
	if transport != nil {
		if err := transport.Disconnect(); err != nil {
			disconnectErr = err
			s.log.Error("disconnect %s: %v", transport.Device(), err)
		}
		if mode == models.ModeConsole {
			if err := transport.WaitForUnlock(s.cfg.UnlockTimeout); err != nil {
				s.log.Warn("port not released: %v", err)
			}
		}
	}

	s.mu.Lock()
	s.device = nil
	s.transport = nil
	s.programmer = nil
	s.chip = ""
	s.tracing = false
	s.mode = models.ModeDisconnected
	s.busy = false
	s.mu.Unlock()
	s.notify()

	if transport != nil {
		s.log.Info("session closed (%s)", mode)
	}
	if disconnectErr != nil {
		return &models.TeardownError{Err: disconnectErr}
	}
	return nil
}

// beginEntry проверяет, что сессия в Disconnected и свободна, и помечает её занятой.
func (s *Service) beginEntry() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return models.ErrBusy
	}
	if s.mode != models.ModeDisconnected {
		mode := s.mode
		s.mu.Unlock()
		return fmt.Errorf("%w (%s)", models.ErrInvalidTransition, mode)
	}
	s.busy = true
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	s.notify()
}

// acquire возвращает транспорт сессии, захватывая устройство при необходимости.
func (s *Service) acquire(ctx context.Context) (ports.Transport, error) {
	s.mu.Lock()
	if s.transport != nil {
		t := s.transport
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	dev, err := s.devices.RequestPort(ctx)
	if err != nil {
		var acqErr *models.AcquisitionError
		if errors.As(err, &acqErr) {
			return nil, err
		}
		return nil, &models.AcquisitionError{Err: err}
	}

	t := s.newTransport(dev, s.cfg.Tracing)

	s.mu.Lock()
	s.device = &dev
	s.transport = t
	s.tracing = s.cfg.Tracing
	s.mu.Unlock()

	s.log.Debug("acquired %s", dev)
	return t, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
