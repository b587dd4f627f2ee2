package serialport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.bug.st/serial/enumerator"

	"serialflash/internal/domain/models"
)

// KnownBridges - USB-UART мосты, с которыми обычно поставляются платы.
var KnownBridges = map[string]string{
	"10C4:EA60": "Silicon Labs CP210x",
	"1A86:7523": "WCH CH340",
	"1A86:55D4": "WCH CH9102",
	"0403:6001": "FTDI FT232R",
	"0403:6015": "FTDI FT231X",
	"303A:1001": "Espressif USB JTAG/serial",
}

// ListFunc перечисляет порты системы. Подменяется в тестах.
type ListFunc func() ([]*enumerator.PortDetails, error)

// Provider выбирает устройство среди портов системы.
// Если имя порта задано, используется оно; иначе берётся первый порт
// известного моста.
type Provider struct {
	list ListFunc

	mu       sync.Mutex
	portName string
}

// NewProvider создаёт провайдер с явно заданным портом (может быть пустым).
func NewProvider(portName string) *Provider {
	return &Provider{list: enumerator.GetDetailedPortsList, portName: portName}
}

// NewProviderWithList создаёт провайдер с подменённым перечислением портов.
func NewProviderWithList(portName string, list ListFunc) *Provider {
	return &Provider{list: list, portName: portName}
}

// SetPort задаёт порт для следующих запросов.
func (p *Provider) SetPort(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.portName = name
}

// Port возвращает заданный порт.
func (p *Provider) Port() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.portName
}

// List возвращает все порты системы, отсортированные по имени.
func (p *Provider) List() ([]models.DeviceHandle, error) {
	details, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	devices := make([]models.DeviceHandle, 0, len(details))
	for _, d := range details {
		devices = append(devices, toHandle(d))
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].PortName < devices[j].PortName })
	return devices, nil
}

// RequestPort возвращает выбранное устройство.
func (p *Provider) RequestPort(ctx context.Context) (models.DeviceHandle, error) {
	if err := ctx.Err(); err != nil {
		return models.DeviceHandle{}, err
	}

	devices, err := p.List()
	if err != nil {
		return models.DeviceHandle{}, err
	}

	want := p.Port()
	if want != "" {
		for _, d := range devices {
			if strings.EqualFold(d.PortName, want) {
				return d, nil
			}
		}
		// Порт может не попасть в перечисление (pty, сетевые адаптеры)
		return models.DeviceHandle{PortName: want}, nil
	}

	for _, d := range devices {
		if d.IsUSB && IsKnownBridge(d.VID, d.PID) {
			return d, nil
		}
	}
	return models.DeviceHandle{}, models.ErrNoDeviceSelected
}

// IsKnownBridge сообщает, что VID:PID принадлежит известному мосту.
func IsKnownBridge(vid, pid string) bool {
	_, ok := KnownBridges[strings.ToUpper(vid+":"+pid)]
	return ok
}

// BridgeName возвращает название моста или пустую строку.
func BridgeName(vid, pid string) string {
	return KnownBridges[strings.ToUpper(vid+":"+pid)]
}

func toHandle(d *enumerator.PortDetails) models.DeviceHandle {
	return models.DeviceHandle{
		PortName:     d.Name,
		VID:          strings.ToUpper(d.VID),
		PID:          strings.ToUpper(d.PID),
		SerialNumber: d.SerialNumber,
		Product:      d.Product,
		IsUSB:        d.IsUSB,
	}
}
