package models

import "time"

// DeviceProfile - запомненные параметры подключения к порту.
type DeviceProfile struct {
	PortName        string    `json:"portName"`                  // Например "/dev/ttyUSB0" или "COM9"
	SerialNumber    string    `json:"serialNumber,omitempty"`    // Серийный номер USB-моста
	FlashBaudRate   int       `json:"flashBaudRate,omitempty"`   // Например 921600
	ConsoleBaudRate int       `json:"consoleBaudRate,omitempty"` // Например 115200
	LastChip        string    `json:"lastChip,omitempty"`        // Последний определённый чип
	LastUsed        time.Time `json:"lastUsed"`                  // Время последнего успешного подключения
}
