package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/logger"
	"serialflash/internal/infrastructure/programmer"
	"serialflash/internal/infrastructure/serialport"
	"serialflash/internal/infrastructure/storage"
	"serialflash/internal/infrastructure/terminal"
	"serialflash/internal/service/connection"
	"serialflash/internal/service/console"
	"serialflash/internal/service/flash"
	"serialflash/internal/service/monitor"
	"serialflash/internal/service/session"
	"serialflash/internal/ui/controller"
)

const closeTimeout = 5 * time.Second

// Options - параметры сборки приложения.
type Options struct {
	Config       models.Config
	ProfilesPath string // JSON профилей; пусто - профили не сохраняются
	HistoryPath  string // SQLite истории; пусто - история не ведётся
	Simulation   programmer.Options
	Output       io.Writer // Терминал оператора; nil - без вывода в поток
	ANSI         bool      // Очистка терминала escape-последовательностью
	Logger       ports.Logger

	// Для тестов
	ListPorts serialport.ListFunc
	OpenPort  serialport.OpenFunc
}

// App связывает инфраструктуру, сервисы и контроллер.
type App struct {
	Config      models.Config
	Log         ports.Logger
	Charset     *terminal.Charset
	Ports       *serialport.Provider
	Profiles    ports.ProfileRepository
	History     ports.HistoryRepository
	Connections *connection.ConnectionService
	Session     *session.Service
	Flash       *flash.Service
	Terminal    *terminal.Buffer
	Output      *terminal.Multi
	Controller  *controller.MainController
	Monitor     *monitor.Service

	mu      sync.Mutex
	closers []func() error
}

// NewApp создает новый экземпляр приложения.
func NewApp(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cs, err := terminal.LookupCharset(opts.Config.Charset)
	if err != nil {
		return nil, err
	}

	a := &App{Log: log, Charset: cs}

	if opts.ListPorts != nil {
		a.Ports = serialport.NewProviderWithList(opts.Config.PortName, opts.ListPorts)
	} else {
		a.Ports = serialport.NewProvider(opts.Config.PortName)
	}

	if opts.ProfilesPath != "" {
		repo, err := storage.NewFileProfileRepository(opts.ProfilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		a.Profiles = repo
	}
	a.Connections = connection.NewConnectionService(a.Ports, a.Profiles, log)

	cfg := opts.Config
	if a.Profiles != nil {
		if cfg, err = a.Connections.ApplyProfile(cfg); err != nil {
			log.Warn("apply profile: %v", err)
			cfg = opts.Config
		}
	}
	a.Config = cfg.WithDefaults()

	flashOpts := []flash.Option{}
	if opts.HistoryPath != "" {
		history, err := storage.OpenHistory(opts.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.History = history
		a.addCloser(history.Close)
		flashOpts = append(flashOpts, flash.WithHistory(history))
	}
	a.Flash = flash.NewService(log.Named("flash"), flashOpts...)

	a.Terminal = terminal.NewBuffer(cs, 0)
	a.Output = terminal.NewMulti(a.Terminal)
	if opts.Output != nil {
		a.Output.Add(terminal.NewWriterSink(opts.Output, cs, opts.ANSI))
	}

	sim := opts.Simulation
	if sim.ResetPulse == 0 {
		sim.ResetPulse = a.Config.ResetPulse
	}
	a.Session = session.NewService(a.Config, session.Deps{
		Devices: a.Ports,
		Transports: serialport.Factory(serialport.Options{
			ReadTimeout: a.Config.ReadTimeout,
			Logger:      log.Named("serial"),
			Open:        opts.OpenPort,
		}),
		Programmers: programmer.Factory(sim, log.Named("programmer")),
		Console:     console.NewService(log.Named("console")),
		Output:      a.Output,
		Logger:      log,
	})

	deps := controller.Deps{
		Session: a.Session,
		Flash:   a.Flash,
		Output:  a.Output,
		Logger:  log,
	}
	if a.Profiles != nil {
		deps.Connections = a.Connections
	}
	a.Controller = controller.NewMainController(deps)

	a.Monitor = monitor.NewService(a.Ports, monitor.Config{
		Busy: func() bool { return a.Session.State().Busy },
	}, log)
	return a, nil
}

func (a *App) addCloser(fn func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close освобождает порт и хранилища. Повторный вызов безопасен.
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var first error
	if a.Session != nil {
		if err := a.Session.Teardown(ctx); err != nil {
			first = err
		}
	}

	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
