package models

import "fmt"

// Mode определяет режим сессии. В любой момент активен ровно один режим.
type Mode int

const (
	ModeDisconnected Mode = iota // Нет активной сессии
	ModeProgramming              // Рукопожатие выполнено, можно прошивать
	ModeConsole                  // Поток консоли устройства
)

func (m Mode) String() string {
	switch m {
	case ModeDisconnected:
		return "disconnected"
	case ModeProgramming:
		return "programming"
	case ModeConsole:
		return "console"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText кодирует режим названием ("programming").
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText разбирает название режима.
func (m *Mode) UnmarshalText(text []byte) error {
	for _, v := range []Mode{ModeDisconnected, ModeProgramming, ModeConsole} {
		if v.String() == string(text) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// DeviceHandle описывает захваченное физическое устройство.
type DeviceHandle struct {
	PortName     string `json:"portName"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Product      string `json:"product,omitempty"`
	IsUSB        bool   `json:"isUsb,omitempty"`
}

// String возвращает человекочитаемое описание устройства.
func (d DeviceHandle) String() string {
	if d.IsUSB && d.VID != "" {
		return fmt.Sprintf("%s (USB %s:%s)", d.PortName, d.VID, d.PID)
	}
	return d.PortName
}

// ChipIdentity - результат успешного рукопожатия с загрузчиком.
type ChipIdentity string

// SessionState - снимок состояния сессии для слоя представления.
type SessionState struct {
	Mode    Mode
	Device  *DeviceHandle // nil, если устройство не захвачено
	Chip    ChipIdentity
	Busy    bool // Выполняется необратимая операция (рукопожатие, стирание, прошивка)
	Tracing bool // Транспорт пишет трассу обмена
}

// HasDevice сообщает, удерживает ли сессия устройство.
func (s SessionState) HasDevice() bool {
	return s.Device != nil
}
