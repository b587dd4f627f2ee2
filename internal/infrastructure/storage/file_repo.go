package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
)

// profilesFile - формат файла профилей.
type profilesFile struct {
	Profiles []*models.DeviceProfile `json:"profiles"`
}

// FileProfileRepository хранит профили устройств в JSON-файле.
// Профиль идентифицируется именем порта (без учёта регистра, COM3 == com3).
type FileProfileRepository struct {
	mu       sync.Mutex
	filePath string
	profiles []*models.DeviceProfile
}

// NewFileProfileRepository открывает хранилище. Отсутствующий файл - пустой список.
func NewFileProfileRepository(filePath string) (ports.ProfileRepository, error) {
	repo := &FileProfileRepository{filePath: filePath}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("init profile repository: %w", err)
	}
	return repo, nil
}

// LoadProfiles возвращает профили, последние использованные - первыми.
func (r *FileProfileRepository) LoadProfiles() ([]*models.DeviceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}

	result := make([]*models.DeviceProfile, len(r.profiles))
	for i, p := range r.profiles {
		cp := *p
		result[i] = &cp
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastUsed.After(result[j].LastUsed)
	})
	return result, nil
}

// UpsertProfile добавляет или заменяет профиль порта.
func (r *FileProfileRepository) UpsertProfile(profile *models.DeviceProfile) error {
	if profile == nil || profile.PortName == "" {
		return fmt.Errorf("profile without port name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *profile
	if i := r.index(profile.PortName); i >= 0 {
		r.profiles[i] = &cp
	} else {
		r.profiles = append(r.profiles, &cp)
	}
	return r.save()
}

// DeleteProfile удаляет профиль порта.
func (r *FileProfileRepository) DeleteProfile(portName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(portName)
	if i < 0 {
		return fmt.Errorf("profile for port %s not found", portName)
	}
	r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
	return r.save()
}

// FindProfile возвращает профиль порта или nil.
func (r *FileProfileRepository) FindProfile(portName string) (*models.DeviceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(portName); i >= 0 {
		cp := *r.profiles[i]
		return &cp, nil
	}
	return nil, nil
}

// ClearProfiles удаляет все профили.
func (r *FileProfileRepository) ClearProfiles() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make([]*models.DeviceProfile, 0)
	return r.save()
}

func (r *FileProfileRepository) index(portName string) int {
	for i, p := range r.profiles {
		if strings.EqualFold(p.PortName, portName) {
			return i
		}
	}
	return -1
}

// load читает файл (вызывается под мьютексом)
func (r *FileProfileRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			r.profiles = make([]*models.DeviceProfile, 0)
			return nil
		}
		return fmt.Errorf("read profiles: %w", err)
	}

	var pf profilesFile
	if err := json.Unmarshal(data, &pf); err != nil {
		r.profiles = make([]*models.DeviceProfile, 0)
		return fmt.Errorf("parse profiles: %w", err)
	}
	r.profiles = pf.Profiles
	return nil
}

// save пишет файл через временный, чтобы не оставить обрезанный JSON
func (r *FileProfileRepository) save() error {
	if err := os.MkdirAll(filepath.Dir(r.filePath), 0o755); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}

	data, err := json.MarshalIndent(profilesFile{Profiles: r.profiles}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}

	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := os.Rename(tmp, r.filePath); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}
