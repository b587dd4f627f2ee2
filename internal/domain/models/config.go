package models

import "time"

// Значения по умолчанию.
const (
	DefaultFlashBaudRate   = 921600
	DefaultConsoleBaudRate = 115200
	DefaultUnlockTimeout   = 1500 * time.Millisecond
	DefaultResetPulse      = 100 * time.Millisecond
	DefaultReadTimeout     = 100 * time.Millisecond
)

// Config определяет параметры сессии.
type Config struct {
	PortName        string        `json:"portName,omitempty"`        // Пусто - автовыбор по VID/PID
	FlashBaudRate   int           `json:"flashBaudRate,omitempty"`   // Скорость для загрузчика
	ConsoleBaudRate int           `json:"consoleBaudRate,omitempty"` // Скорость консоли
	DebugLogging    bool          `json:"debugLogging,omitempty"`    // Подробный лог программатора
	Tracing         bool          `json:"tracing,omitempty"`         // Трасса обмена на транспорте
	UnlockTimeout   time.Duration `json:"unlockTimeout,omitempty"`   // Ожидание освобождения порта после консоли
	ResetPulse      time.Duration `json:"resetPulse,omitempty"`      // Длительность импульса DTR
	ReadTimeout     time.Duration `json:"readTimeout,omitempty"`     // Таймаут чтения порта
	Charset         string        `json:"charset,omitempty"`         // Кодировка вывода консоли
}

// WithDefaults возвращает копию конфигурации с заполненными пустыми полями.
func (c Config) WithDefaults() Config {
	if c.FlashBaudRate == 0 {
		c.FlashBaudRate = DefaultFlashBaudRate
	}
	if c.ConsoleBaudRate == 0 {
		c.ConsoleBaudRate = DefaultConsoleBaudRate
	}
	if c.UnlockTimeout == 0 {
		c.UnlockTimeout = DefaultUnlockTimeout
	}
	if c.ResetPulse == 0 {
		c.ResetPulse = DefaultResetPulse
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}
