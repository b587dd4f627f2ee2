package monitor

import (
	"context"
	"sync"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
)

// DefaultPollInterval - период опроса списка портов.
const DefaultPollInterval = 2 * time.Second

// PortLister перечисляет порты системы.
type PortLister interface {
	List() ([]models.DeviceHandle, error)
}

// Config содержит конфигурацию опроса
type Config struct {
	PollInterval time.Duration
	// Busy сообщает, что сессия занята; опрос в это время пропускается
	Busy func() bool
}

// Service следит за подключением и отключением последовательных устройств.
type Service struct {
	lister PortLister
	config Config
	log    ports.Logger

	mu             sync.Mutex
	ports          []models.DeviceHandle
	cancel         context.CancelFunc
	done           chan struct{}
	updateCallback func([]models.DeviceHandle)
}

// NewService создает новый экземпляр сервиса мониторинга
func NewService(lister PortLister, cfg Config, log ports.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Service{lister: lister, config: cfg, log: log.Named("monitor")}
}

// SetUpdateCallback устанавливает обработчик изменения списка портов
func (s *Service) SetUpdateCallback(fn func([]models.DeviceHandle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCallback = fn
}

// Start запускает опрос. Повторный запуск перезапускает опрос.
func (s *Service) Start(ctx context.Context) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.poll()
	go s.monitorRoutine(ctx, done)
	s.log.Debug("port monitor started (%s)", s.config.PollInterval)
}

// Stop останавливает опрос и дожидается завершения горутины
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Ports возвращает последний известный список портов
func (s *Service) Ports() []models.DeviceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DeviceHandle(nil), s.ports...)
}

func (s *Service) monitorRoutine(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.config.Busy != nil && s.config.Busy() {
				continue
			}
			s.poll()
		}
	}
}

// poll перечитывает список и сообщает об изменениях
func (s *Service) poll() {
	list, err := s.lister.List()
	if err != nil {
		s.log.Debug("list ports: %v", err)
		return
	}

	s.mu.Lock()
	changed := !samePorts(s.ports, list)
	if changed {
		s.ports = list
	}
	fn := s.updateCallback
	s.mu.Unlock()

	if !changed {
		return
	}
	s.log.Info("serial ports changed: %d present", len(list))
	if fn != nil {
		fn(append([]models.DeviceHandle(nil), list...))
	}
}

func samePorts(a, b []models.DeviceHandle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
