package connection

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/infrastructure/logger"
	"serialflash/internal/infrastructure/storage"
)

type staticLister []models.DeviceHandle

func (l staticLister) List() ([]models.DeviceHandle, error) { return l, nil }

func newService(t *testing.T) *ConnectionService {
	t.Helper()
	repo, err := storage.NewFileProfileRepository(filepath.Join(t.TempDir(), "profiles.json"))
	if err != nil {
		t.Fatal(err)
	}
	svc := NewConnectionService(staticLister{{PortName: "COM3"}}, repo, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestGetSystemPorts(t *testing.T) {
	ports, err := newService(t).GetSystemPorts()
	if err != nil || len(ports) != 1 || ports[0].PortName != "COM3" {
		t.Errorf("ports = %+v, %v", ports, err)
	}
}

func TestRememberAndApplyProfile(t *testing.T) {
	svc := newService(t)
	state := models.SessionState{
		Mode:   models.ModeProgramming,
		Device: &models.DeviceHandle{PortName: "COM3", SerialNumber: "0001"},
		Chip:   "ESP32-S3",
	}
	cfg := models.Config{FlashBaudRate: 460800, ConsoleBaudRate: 74880}
	if err := svc.RememberConnection(state, cfg); err != nil {
		t.Fatalf("RememberConnection: %v", err)
	}

	p, err := svc.FindProfile("COM3")
	if err != nil || p == nil {
		t.Fatalf("FindProfile = %v, %v", p, err)
	}
	if p.LastChip != "ESP32-S3" || p.SerialNumber != "0001" || p.LastUsed.IsZero() {
		t.Errorf("profile = %+v", p)
	}

	applied, err := svc.ApplyProfile(models.Config{PortName: "COM3", ConsoleBaudRate: 115200})
	if err != nil {
		t.Fatal(err)
	}
	if applied.FlashBaudRate != 460800 {
		t.Errorf("flash baud = %d, want profile value", applied.FlashBaudRate)
	}
	if applied.ConsoleBaudRate != 115200 {
		t.Errorf("console baud = %d, explicit value overwritten", applied.ConsoleBaudRate)
	}

	// Порт без профиля
	untouched, err := svc.ApplyProfile(models.Config{PortName: "COM9"})
	if err != nil || untouched.FlashBaudRate != 0 {
		t.Errorf("ApplyProfile(COM9) = %+v, %v", untouched, err)
	}
}

func TestRememberConnectionWithoutDevice(t *testing.T) {
	err := newService(t).RememberConnection(models.SessionState{}, models.Config{})
	if !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}
