package ports

import (
	"context"

	"serialflash/internal/domain/models"
)

// ProfileRepository определяет интерфейс для хранения профилей устройств.
// Реализация интерфейса находится в слое Infrastructure.
type ProfileRepository interface {
	// LoadProfiles загружает все профили из хранилища
	LoadProfiles() ([]*models.DeviceProfile, error)

	// UpsertProfile добавляет или обновляет профиль
	UpsertProfile(profile *models.DeviceProfile) error

	// DeleteProfile удаляет профиль по имени порта
	DeleteProfile(portName string) error

	// FindProfile находит профиль по имени порта
	FindProfile(portName string) (*models.DeviceProfile, error)

	// ClearProfiles очищает все профили
	ClearProfiles() error
}

// HistoryRepository хранит историю заданий прошивки.
type HistoryRepository interface {
	Save(ctx context.Context, rec *models.FlashRecord) error
	List(ctx context.Context, limit int) ([]*models.FlashRecord, error)
	Close() error
}
