package serialport

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"

	"serialflash/internal/domain/models"
)

// fakePort - порт в памяти. Read отдаёт порции из очереди,
// при пустой очереди имитирует таймаут чтения.
type fakePort struct {
	mu      sync.Mutex
	chunks  [][]byte
	written []byte
	dtr     []bool
	mode    *serial.Mode
	timeout time.Duration
	closed  bool
	readErr error
}

func (p *fakePort) push(b string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, []byte(b))
}

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	return nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errors.New("bad file descriptor")
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.chunks) > 0 {
		n := copy(b, p.chunks[0])
		p.chunks = p.chunks[1:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Drain() error             { return nil }
func (p *fakePort) ResetInputBuffer() error  { return nil }
func (p *fakePort) ResetOutputBuffer() error { return nil }
func (p *fakePort) SetRTS(bool) error        { return nil }
func (p *fakePort) Break(time.Duration) error {
	return nil
}

func (p *fakePort) SetDTR(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dtr = append(p.dtr, v)
	return nil
}

func (p *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newTestTransport(port *fakePort, opened *int) *Transport {
	device := models.DeviceHandle{PortName: "/dev/ttyUSB0"}
	return NewTransport(device, false, Options{
		ReadTimeout: 20 * time.Millisecond,
		Open: func(name string, mode *serial.Mode) (serial.Port, error) {
			if opened != nil {
				*opened++
			}
			port.mode = mode
			return port, nil
		},
	})
}

func TestConnectOpensPort8N1(t *testing.T) {
	port := &fakePort{}
	opened := 0
	tr := newTestTransport(port, &opened)

	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if opened != 1 {
		t.Fatalf("opened = %d, want 1", opened)
	}
	if port.mode.BaudRate != 115200 || port.mode.DataBits != 8 ||
		port.mode.Parity != serial.NoParity || port.mode.StopBits != serial.OneStopBit {
		t.Errorf("unexpected mode %+v", port.mode)
	}
	if port.timeout != 20*time.Millisecond {
		t.Errorf("read timeout = %v", port.timeout)
	}

	// Повторное подключение меняет скорость, порт не переоткрывается
	if err := tr.Connect(context.Background(), 921600); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if opened != 1 {
		t.Errorf("port reopened: %d", opened)
	}
	if port.mode.BaudRate != 921600 {
		t.Errorf("baud = %d, want 921600", port.mode.BaudRate)
	}
}

func TestConnectOpenError(t *testing.T) {
	tr := NewTransport(models.DeviceHandle{PortName: "COM9"}, false, Options{
		Open: func(string, *serial.Mode) (serial.Port, error) {
			return nil, errors.New("no such port")
		},
	})
	err := tr.Connect(context.Background(), 115200)
	if err == nil || !strings.Contains(err.Error(), "COM9") {
		t.Fatalf("err = %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	port := &fakePort{}
	tr := newTestTransport(port, nil)

	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect before connect: %v", err)
	}
	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatal(err)
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestOperationsOnClosedPort(t *testing.T) {
	tr := newTestTransport(&fakePort{}, nil)

	if _, err := tr.Write([]byte("x")); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Write err = %v", err)
	}
	if err := tr.SetDTR(true); !errors.Is(err, ErrPortClosed) {
		t.Errorf("SetDTR err = %v", err)
	}
	if _, err := tr.RawRead().Next(); err != io.EOF {
		t.Errorf("Next err = %v, want io.EOF", err)
	}
}

func TestStreamSkipsTimeouts(t *testing.T) {
	port := &fakePort{}
	tr := newTestTransport(port, nil)
	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatal(err)
	}

	stream := tr.RawRead()
	go func() {
		time.Sleep(5 * time.Millisecond)
		port.push("boot:0x13\r\n")
	}()

	chunk, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(chunk) != "boot:0x13\r\n" {
		t.Errorf("chunk = %q", chunk)
	}
}

func TestDisconnectEndsStreamAndUnlocks(t *testing.T) {
	port := &fakePort{}
	tr := newTestTransport(port, nil)
	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := tr.RawRead().Next()
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	if err := tr.Disconnect(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != io.EOF {
			t.Errorf("Next err = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not finish")
	}

	if err := tr.WaitForUnlock(100 * time.Millisecond); err != nil {
		t.Errorf("WaitForUnlock: %v", err)
	}
}

func TestWaitForUnlockTimeout(t *testing.T) {
	tr := newTestTransport(&fakePort{}, nil)
	tr.readMu.Lock()
	defer tr.readMu.Unlock()

	if err := tr.WaitForUnlock(30 * time.Millisecond); !errors.Is(err, ErrUnlockTimeout) {
		t.Errorf("err = %v, want ErrUnlockTimeout", err)
	}
}

func TestReadErrorSurfaced(t *testing.T) {
	port := &fakePort{readErr: errors.New("framing error")}
	tr := newTestTransport(port, nil)
	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.RawRead().Next(); err == nil || err == io.EOF {
		t.Errorf("err = %v, want read error", err)
	}
}

func TestTrace(t *testing.T) {
	port := &fakePort{}
	tr := newTestTransport(port, nil)
	tr.SetTracing(true)
	if err := tr.Connect(context.Background(), 115200); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Write([]byte{0xc0, 0x00, 0x08}); err != nil {
		t.Fatal(err)
	}
	port.push("\x01\x02")
	if _, err := tr.RawRead().Next(); err != nil {
		t.Fatal(err)
	}

	trace := tr.ReturnTrace()
	for _, want := range []string{"open /dev/ttyUSB0 at 115200 baud", "TX c0 00 08", "RX 01 02"} {
		if !strings.Contains(trace, want) {
			t.Errorf("trace missing %q:\n%s", want, trace)
		}
	}

	// Без трассировки данные не записываются
	tr.SetTracing(false)
	if _, err := tr.Write([]byte{0xff}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(tr.ReturnTrace(), "TX ff") {
		t.Error("write traced while tracing disabled")
	}
}
