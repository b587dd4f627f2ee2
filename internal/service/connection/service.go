package connection

import (
	"fmt"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
)

// PortLister перечисляет последовательные порты системы.
type PortLister interface {
	List() ([]models.DeviceHandle, error)
}

// ConnectionService отвечает за список портов и профили устройств.
type ConnectionService struct {
	ports PortLister
	repo  ports.ProfileRepository
	log   ports.Logger
	now   func() time.Time
}

// NewConnectionService создает новый экземпляр ConnectionService
func NewConnectionService(lister PortLister, repo ports.ProfileRepository, log ports.Logger) *ConnectionService {
	return &ConnectionService{
		ports: lister,
		repo:  repo,
		log:   log.Named("connection"),
		now:   time.Now,
	}
}

// GetSystemPorts возвращает список доступных в системе портов
func (s *ConnectionService) GetSystemPorts() ([]models.DeviceHandle, error) {
	return s.ports.List()
}

// ApplyProfile дополняет конфигурацию из профиля выбранного порта.
// Явно заданные значения не перезаписываются.
func (s *ConnectionService) ApplyProfile(cfg models.Config) (models.Config, error) {
	if cfg.PortName == "" {
		return cfg, nil
	}
	profile, err := s.repo.FindProfile(cfg.PortName)
	if err != nil {
		return cfg, err
	}
	if profile == nil {
		return cfg, nil
	}
	if cfg.FlashBaudRate == 0 {
		cfg.FlashBaudRate = profile.FlashBaudRate
	}
	if cfg.ConsoleBaudRate == 0 {
		cfg.ConsoleBaudRate = profile.ConsoleBaudRate
	}
	s.log.Debug("profile applied for %s", profile.PortName)
	return cfg, nil
}

// RememberConnection сохраняет профиль устройства текущей сессии.
func (s *ConnectionService) RememberConnection(state models.SessionState, cfg models.Config) error {
	if state.Device == nil {
		return fmt.Errorf("remember connection: %w", models.ErrNotConnected)
	}

	profile, err := s.repo.FindProfile(state.Device.PortName)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &models.DeviceProfile{PortName: state.Device.PortName}
	}
	profile.SerialNumber = state.Device.SerialNumber
	profile.FlashBaudRate = cfg.FlashBaudRate
	profile.ConsoleBaudRate = cfg.ConsoleBaudRate
	if state.Chip != "" {
		profile.LastChip = string(state.Chip)
	}
	return s.SaveProfile(profile)
}

// LoadProfiles загружает все профили
func (s *ConnectionService) LoadProfiles() ([]*models.DeviceProfile, error) {
	return s.repo.LoadProfiles()
}

// SaveProfile сохраняет или обновляет профиль
func (s *ConnectionService) SaveProfile(profile *models.DeviceProfile) error {
	profile.LastUsed = s.now()
	return s.repo.UpsertProfile(profile)
}

// DeleteProfile удаляет профиль по имени порта
func (s *ConnectionService) DeleteProfile(portName string) error {
	return s.repo.DeleteProfile(portName)
}

// FindProfile находит профиль по имени порта
func (s *ConnectionService) FindProfile(portName string) (*models.DeviceProfile, error) {
	return s.repo.FindProfile(portName)
}

// ClearProfiles удаляет все профили
func (s *ConnectionService) ClearProfiles() error {
	return s.repo.ClearProfiles()
}
