package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/domain/ports/mocks"
	"serialflash/internal/infrastructure/logger"
)

var testDevice = models.DeviceHandle{PortName: "/dev/ttyUSB0", VID: "10C4", PID: "EA60", IsUSB: true}

type nopSink struct{}

func (nopSink) Clean()           {}
func (nopSink) WriteLine(string) {}
func (nopSink) Write(string)     {}

type fixture struct {
	ctrl       *gomock.Controller
	devices    *mocks.MockDeviceProvider
	transport  *mocks.MockTransport
	prog       *mocks.MockProgrammer
	svc        *Service
	made       int
	loaderOpts ports.LoaderOptions
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		ctrl:      ctrl,
		devices:   mocks.NewMockDeviceProvider(ctrl),
		transport: mocks.NewMockTransport(ctrl),
		prog:      mocks.NewMockProgrammer(ctrl),
	}
	f.svc = NewService(models.Config{}, Deps{
		Devices: f.devices,
		Transports: func(dev models.DeviceHandle, tracing bool) ports.Transport {
			f.made++
			return f.transport
		},
		Programmers: func(opts ports.LoaderOptions) (ports.Programmer, error) {
			f.loaderOpts = opts
			return f.prog, nil
		},
		Output: nopSink{},
		Logger: logger.Nop(),
	})
	f.svc.sleep = func(context.Context, time.Duration) error { return nil }
	f.transport.EXPECT().Device().Return(testDevice).AnyTimes()
	f.transport.EXPECT().SetTracing(gomock.Any()).AnyTimes()
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity("ESP32-S3"), nil)
	if _, err := f.svc.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

func assertCleared(t *testing.T, st models.SessionState) {
	t.Helper()
	if st.Mode != models.ModeDisconnected || st.Device != nil || st.Chip != "" || st.Busy {
		t.Errorf("session not cleared: %+v", st)
	}
}

func TestConnectSuccess(t *testing.T) {
	f := newFixture(t)
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity("ESP32-S3"), nil)

	chip, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chip != "ESP32-S3" {
		t.Errorf("chip = %q, want ESP32-S3", chip)
	}

	st := f.svc.State()
	if st.Mode != models.ModeProgramming || st.Chip != "ESP32-S3" || !st.Tracing {
		t.Errorf("unexpected state: %+v", st)
	}
	if st.Device == nil || st.Device.PortName != testDevice.PortName {
		t.Errorf("device = %+v, want %s", st.Device, testDevice.PortName)
	}
	if f.loaderOpts.BaudRate != models.DefaultFlashBaudRate || f.loaderOpts.Transport == nil || f.loaderOpts.Terminal == nil {
		t.Errorf("loader options = %+v", f.loaderOpts)
	}
}

func TestHandshakeTimeoutRetainsDeviceAndRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	timeout := errors.New("Failed to connect with the device")

	// Устройство запрашивается ровно один раз на обе попытки
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil).Times(1)
	gomock.InOrder(
		f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity(""), timeout),
		f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity("ESP32"), nil),
	)
	f.transport.EXPECT().Disconnect().Return(nil).Times(1)

	_, err := f.svc.Connect(context.Background())
	var herr *models.HandshakeError
	if !errors.As(err, &herr) || !errors.Is(err, timeout) {
		t.Fatalf("error = %v, want HandshakeError", err)
	}
	if err.Error() != timeout.Error() {
		t.Errorf("message = %q, want %q", err.Error(), timeout.Error())
	}

	st := f.svc.State()
	if st.Mode != models.ModeDisconnected || st.Device == nil || st.Chip != "" || st.Busy {
		t.Fatalf("state after failed handshake: %+v", st)
	}

	chip, err := f.svc.Connect(context.Background())
	if err != nil || chip != "ESP32" {
		t.Fatalf("retry: chip=%q err=%v", chip, err)
	}
	if f.made != 1 {
		t.Errorf("transport constructed %d times, want 1", f.made)
	}
}

func TestAcquisitionFailure(t *testing.T) {
	f := newFixture(t)
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(models.DeviceHandle{}, models.ErrNoDeviceSelected)

	_, err := f.svc.Connect(context.Background())
	var aerr *models.AcquisitionError
	if !errors.As(err, &aerr) || !errors.Is(err, models.ErrNoDeviceSelected) {
		t.Fatalf("error = %v, want AcquisitionError", err)
	}
	assertCleared(t, f.svc.State())
	if f.made != 0 {
		t.Errorf("transport constructed without a device")
	}
}

func TestEntryFromActiveModeRejected(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	if _, err := f.svc.Connect(context.Background()); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second connect error = %v, want ErrInvalidTransition", err)
	}
	if err := f.svc.StartConsole(context.Background(), 0); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("console start error = %v, want ErrInvalidTransition", err)
	}
	if f.svc.State().Mode != models.ModeProgramming {
		t.Error("mode changed by rejected transition")
	}
}

func TestTeardownProgrammingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	// Путь программирования: без ожидания освобождения порта
	f.transport.EXPECT().Disconnect().Return(nil).Times(1)
	f.transport.EXPECT().WaitForUnlock(gomock.Any()).Times(0)

	if err := f.svc.Teardown(context.Background()); err != nil {
		t.Fatalf("first teardown: %v", err)
	}
	assertCleared(t, f.svc.State())

	if err := f.svc.Teardown(context.Background()); err != nil {
		t.Fatalf("second teardown: %v", err)
	}
	assertCleared(t, f.svc.State())
}

func TestTeardownClearsStateOnDisconnectError(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.transport.EXPECT().Disconnect().Return(errors.New("port busy"))

	err := f.svc.Teardown(context.Background())
	var terr *models.TeardownError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TeardownError", err)
	}
	assertCleared(t, f.svc.State())
}

func TestEraseRequiresProgramming(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Erase(context.Background()); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestEraseFailureKeepsMode(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.prog.EXPECT().EraseFlash(gomock.Any()).Return(errors.New("chip erase timed out"))
	if err := f.svc.Erase(context.Background()); err == nil {
		t.Fatal("expected erase error")
	}

	st := f.svc.State()
	if st.Mode != models.ModeProgramming || st.Busy {
		t.Errorf("state after failed erase: %+v", st)
	}

	// Повторное стирание после ошибки разрешено
	f.prog.EXPECT().EraseFlash(gomock.Any()).Return(nil)
	if err := f.svc.Erase(context.Background()); err != nil {
		t.Errorf("retry erase: %v", err)
	}
}

func TestReentrantEraseIsBusy(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.prog.EXPECT().EraseFlash(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		if err := f.svc.Erase(ctx); !errors.Is(err, models.ErrBusy) {
			t.Errorf("nested erase error = %v, want ErrBusy", err)
		}
		if err := f.svc.Teardown(ctx); !errors.Is(err, models.ErrBusy) {
			t.Errorf("teardown during erase error = %v, want ErrBusy", err)
		}
		return nil
	}).Times(1)

	if err := f.svc.Erase(context.Background()); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if f.svc.State().Busy {
		t.Error("busy marker not released")
	}
}

func TestResetPulse(t *testing.T) {
	f := newFixture(t)

	// Без транспорта ничего не происходит
	if err := f.svc.ResetPulse(context.Background()); err != nil {
		t.Fatalf("reset without transport: %v", err)
	}

	f.connect(t)
	var slept time.Duration
	f.svc.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}
	gomock.InOrder(
		f.transport.EXPECT().SetDTR(false).Return(nil),
		f.transport.EXPECT().SetDTR(true).Return(nil),
	)
	if err := f.svc.ResetPulse(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if slept != models.DefaultResetPulse {
		t.Errorf("pulse = %v, want %v", slept, models.DefaultResetPulse)
	}
}

func TestTrace(t *testing.T) {
	f := newFixture(t)
	if got := f.svc.Trace(); got != "" {
		t.Errorf("trace without transport = %q", got)
	}

	f.connect(t)
	f.transport.EXPECT().ReturnTrace().Return("TX 08 00")
	if got := f.svc.Trace(); got != "TX 08 00" {
		t.Errorf("trace = %q", got)
	}
}

// blockingStream отдаёт порции из канала; после close возвращает io.EOF.
type blockingStream struct {
	ch   chan []byte
	once sync.Once
}

func newBlockingStream() *blockingStream {
	return &blockingStream{ch: make(chan []byte, 4)}
}

func (b *blockingStream) Next() ([]byte, error) {
	chunk, ok := <-b.ch
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

func (b *blockingStream) close() {
	b.once.Do(func() { close(b.ch) })
}

func waitForMode(t *testing.T, svc *Service, mode models.Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.State().Mode == mode {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mode %s not reached, state %+v", mode, svc.State())
}

func TestConsoleStopWaitsForUnlock(t *testing.T) {
	f := newFixture(t)
	stream := newBlockingStream()
	stream.ch <- []byte("boot:0x13\r\n")

	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.transport.EXPECT().Connect(gomock.Any(), models.DefaultConsoleBaudRate).Return(nil)
	f.transport.EXPECT().RawRead().Return(stream).AnyTimes()
	gomock.InOrder(
		f.transport.EXPECT().Disconnect().DoAndReturn(func() error {
			stream.close()
			return nil
		}),
		f.transport.EXPECT().WaitForUnlock(models.DefaultUnlockTimeout).Return(nil),
	)

	done := make(chan error, 1)
	go func() {
		done <- f.svc.StartConsole(context.Background(), 0)
	}()
	waitForMode(t, f.svc, models.ModeConsole)

	if err := f.svc.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("console loop error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("console loop did not stop")
	}
	assertCleared(t, f.svc.State())
}

func TestConsoleNaturalEndKeepsMode(t *testing.T) {
	f := newFixture(t)
	stream := newBlockingStream()
	stream.ch <- []byte("AT\r\n")
	stream.ch <- []byte("OK\r\n")
	stream.close()

	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.transport.EXPECT().Connect(gomock.Any(), 74880).Return(nil)
	f.transport.EXPECT().RawRead().Return(stream).Times(3)
	// Teardown не выполняется автоматически
	f.transport.EXPECT().Disconnect().Times(0)

	if err := f.svc.StartConsole(context.Background(), 74880); err != nil {
		t.Fatalf("console: %v", err)
	}
	if f.svc.State().Mode != models.ModeConsole {
		t.Errorf("mode = %s, want console", f.svc.State().Mode)
	}
}

func TestConsoleConnectFailure(t *testing.T) {
	f := newFixture(t)
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.transport.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(errors.New("Serial port busy"))

	err := f.svc.StartConsole(context.Background(), 0)
	var aerr *models.AcquisitionError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want AcquisitionError", err)
	}
	st := f.svc.State()
	if st.Mode != models.ModeDisconnected || st.Busy {
		t.Errorf("state after failed console start: %+v", st)
	}
}

func TestWriteConsoleRequiresConsoleMode(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.WriteConsole([]byte("help\r")); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestOnChangeReportsBusyAndMode(t *testing.T) {
	f := newFixture(t)

	type change struct {
		mode models.Mode
		busy bool
	}
	var mu sync.Mutex
	var got []change
	f.svc.OnChange(func(st models.SessionState) {
		mu.Lock()
		got = append(got, change{st.Mode, st.Busy})
		mu.Unlock()
	})

	f.connect(t)
	f.transport.EXPECT().Disconnect().Return(nil)
	if err := f.svc.Teardown(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []change{
		{models.ModeDisconnected, true},
		{models.ModeProgramming, false},
		{models.ModeProgramming, true},
		{models.ModeDisconnected, false},
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, got[i], want[i])
		}
	}
}
