package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/logger"
)

const readBufferSize = 4096

var (
	// ErrUnlockTimeout - читатель не отпустил порт за отведённое время.
	ErrUnlockTimeout = errors.New("timeout waiting for port unlock")
	// ErrPortClosed - операция над закрытым портом.
	ErrPortClosed = errors.New("port is not open")
)

// OpenFunc открывает порт. Подменяется в тестах.
type OpenFunc func(portName string, mode *serial.Mode) (serial.Port, error)

// Options определяет параметры транспорта.
type Options struct {
	ReadTimeout time.Duration
	Logger      ports.Logger
	Open        OpenFunc
}

// Transport инкапсулирует работу с COM-портом устройства.
type Transport struct {
	device      models.DeviceHandle
	readTimeout time.Duration
	open        OpenFunc
	log         ports.Logger

	mu      sync.Mutex
	port    serial.Port
	baud    int
	tracing bool
	trace   traceBuffer

	// readMu удерживается читателем на время Next
	readMu sync.Mutex
}

// NewTransport создаёт транспорт для устройства. Порт открывается в Connect.
func NewTransport(device models.DeviceHandle, tracing bool, opts Options) *Transport {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = models.DefaultReadTimeout
	}
	if opts.Open == nil {
		opts.Open = serial.Open
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Transport{
		device:      device,
		readTimeout: opts.ReadTimeout,
		open:        opts.Open,
		log:         opts.Logger,
		tracing:     tracing,
	}
}

// Factory возвращает ports.TransportFactory с общими опциями.
func Factory(opts Options) ports.TransportFactory {
	return func(device models.DeviceHandle, tracing bool) ports.Transport {
		return NewTransport(device, tracing, opts)
	}
}

// Device возвращает устройство транспорта.
func (t *Transport) Device() models.DeviceHandle {
	return t.device
}

// Connect открывает порт на скорости baudRate. Если порт уже открыт,
// меняет скорость.
func (t *Transport) Connect(ctx context.Context, baudRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	if t.port != nil {
		if t.baud == baudRate {
			return nil
		}
		if err := t.port.SetMode(mode); err != nil {
			return fmt.Errorf("change baud rate to %d: %w", baudRate, err)
		}
		t.baud = baudRate
		t.traceEvent("baud %d", baudRate)
		return nil
	}

	port, err := t.open(t.device.PortName, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.device.PortName, err)
	}
	if err := port.SetReadTimeout(t.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}

	t.port = port
	t.baud = baudRate
	t.log.Debug("Порт %s открыт, скорость %d", t.device.PortName, baudRate)
	t.traceEvent("open %s at %d baud", t.device.PortName, baudRate)
	return nil
}

// Disconnect закрывает порт. Повторный вызов ничего не делает.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.baud = 0
	t.traceEvent("close")
	t.log.Debug("Порт %s закрыт", t.device.PortName)
	if err != nil {
		return fmt.Errorf("close %s: %w", t.device.PortName, err)
	}
	return nil
}

// SetDTR управляет линией DTR.
func (t *Transport) SetDTR(level bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return ErrPortClosed
	}
	t.traceEvent("DTR=%v", level)
	return t.port.SetDTR(level)
}

// SetRTS управляет линией RTS.
func (t *Transport) SetRTS(level bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return ErrPortClosed
	}
	t.traceEvent("RTS=%v", level)
	return t.port.SetRTS(level)
}

// Write отправляет данные в порт.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	port := t.port
	tracing := t.tracing
	t.mu.Unlock()

	if port == nil {
		return 0, ErrPortClosed
	}
	n, err := port.Write(p)
	if tracing && n > 0 {
		t.trace.data("TX", p[:n])
	}
	return n, err
}

// RawRead возвращает поток чтения порта.
func (t *Transport) RawRead() ports.ByteStream {
	return &stream{t: t}
}

// WaitForUnlock ждёт, пока читатель отпустит порт.
func (t *Transport) WaitForUnlock(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if t.readMu.TryLock() {
			t.readMu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return ErrUnlockTimeout
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// SetTracing включает или выключает запись трассы.
func (t *Transport) SetTracing(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracing = enabled
}

// ReturnTrace возвращает накопленную трассу.
func (t *Transport) ReturnTrace() string {
	return t.trace.String()
}

// traceEvent пишет событие линии (должен вызываться только под мьютексом)
func (t *Transport) traceEvent(format string, args ...interface{}) {
	if t.tracing {
		t.trace.event(format, args...)
	}
}

func (t *Transport) current() (serial.Port, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port, t.tracing
}

// stream читает порт порциями того размера, который отдаёт драйвер.
type stream struct {
	t *Transport
}

// Next блокируется до прихода данных. Таймаут чтения порта не завершает поток;
// закрытие порта завершает поток с io.EOF.
func (s *stream) Next() ([]byte, error) {
	s.t.readMu.Lock()
	defer s.t.readMu.Unlock()

	buf := make([]byte, readBufferSize)
	for {
		port, tracing := s.t.current()
		if port == nil {
			return nil, io.EOF
		}

		n, err := port.Read(buf)
		if err != nil {
			if isClosed(err) {
				return nil, io.EOF
			}
			if cur, _ := s.t.current(); cur != port {
				// Порт закрыт во время чтения
				return nil, io.EOF
			}
			return nil, err
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		if tracing {
			s.t.trace.data("RX", chunk)
		}
		return chunk, nil
	}
}
