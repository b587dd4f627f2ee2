package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"serialflash/internal/domain/models"
	"serialflash/internal/infrastructure/logger"
)

type fakeLister struct {
	mu    sync.Mutex
	ports []models.DeviceHandle
	err   error
	calls int
}

func (f *fakeLister) List() ([]models.DeviceHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]models.DeviceHandle(nil), f.ports...), f.err
}

func (f *fakeLister) set(ports ...models.DeviceHandle) {
	f.mu.Lock()
	f.ports = ports
	f.mu.Unlock()
}

func (f *fakeLister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestReportsChanges(t *testing.T) {
	lister := &fakeLister{}
	lister.set(models.DeviceHandle{PortName: "/dev/ttyS0"})

	updates := make(chan []models.DeviceHandle, 10)
	s := NewService(lister, Config{PollInterval: 5 * time.Millisecond}, logger.Nop())
	s.SetUpdateCallback(func(list []models.DeviceHandle) { updates <- list })

	s.Start(context.Background())
	defer s.Stop()

	if got := <-updates; len(got) != 1 {
		t.Fatalf("initial = %v", got)
	}

	lister.set(models.DeviceHandle{PortName: "/dev/ttyS0"}, models.DeviceHandle{PortName: "/dev/ttyUSB0", IsUSB: true})
	select {
	case got := <-updates:
		if len(got) != 2 || got[1].PortName != "/dev/ttyUSB0" {
			t.Errorf("update = %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no update after plug")
	}

	// Без изменений уведомлений нет
	time.Sleep(30 * time.Millisecond)
	if len(updates) != 0 {
		t.Errorf("unexpected updates: %d", len(updates))
	}
	if len(s.Ports()) != 2 {
		t.Errorf("Ports = %v", s.Ports())
	}
}

func TestSkipsWhileBusy(t *testing.T) {
	lister := &fakeLister{}
	s := NewService(lister, Config{
		PollInterval: 2 * time.Millisecond,
		Busy:         func() bool { return true },
	}, logger.Nop())

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	// Только начальный опрос
	if n := lister.count(); n != 1 {
		t.Errorf("List called %d times", n)
	}
}

func TestListErrorKeepsLastPorts(t *testing.T) {
	lister := &fakeLister{}
	lister.set(models.DeviceHandle{PortName: "COM3"})
	s := NewService(lister, Config{}, logger.Nop())

	s.poll()
	lister.mu.Lock()
	lister.err = errors.New("enumeration failed")
	lister.mu.Unlock()
	s.poll()

	if got := s.Ports(); len(got) != 1 || got[0].PortName != "COM3" {
		t.Errorf("Ports = %v", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewService(&fakeLister{}, Config{}, logger.Nop())
	s.Stop()
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
