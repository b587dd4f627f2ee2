package ports

import (
	"context"
	"time"

	"serialflash/internal/domain/models"
)

// ByteStream - ленивый поток байтов с транспорта.
type ByteStream interface {
	// Next блокируется до прихода данных. Конец потока - io.EOF.
	// Размер порции определяется транспортом.
	Next() ([]byte, error)
}

// Transport - последовательный канал поверх захваченного устройства.
type Transport interface {
	Connect(ctx context.Context, baudRate int) error
	// Disconnect идемпотентен.
	Disconnect() error
	SetDTR(level bool) error
	Write(p []byte) (int, error)
	// RawRead возвращает поток чтения; перезапускается на каждом цикле Connect.
	RawRead() ByteStream
	// WaitForUnlock ждёт, пока читатель отпустит порт, не дольше timeout.
	WaitForUnlock(timeout time.Duration) error
	SetTracing(enabled bool)
	// ReturnTrace возвращает накопленную трассу обмена в текстовом виде.
	ReturnTrace() string
	Device() models.DeviceHandle
}

// TransportFactory создаёт новый транспорт для захваченного устройства.
type TransportFactory func(device models.DeviceHandle, tracing bool) Transport

// DeviceProvider выдаёт устройство для новой сессии (аналог выбора порта оператором).
type DeviceProvider interface {
	RequestPort(ctx context.Context) (models.DeviceHandle, error)
}
