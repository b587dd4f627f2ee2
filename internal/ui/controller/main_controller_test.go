package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/domain/ports/mocks"
	"serialflash/internal/infrastructure/logger"
	"serialflash/internal/service/flash"
	"serialflash/internal/service/session"
)

var testDevice = models.DeviceHandle{PortName: "/dev/ttyUSB0"}

type recordingSink struct {
	mu    sync.Mutex
	lines []string
	clean int
}

func (s *recordingSink) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clean++
}

func (s *recordingSink) WriteLine(l string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l)
}

func (s *recordingSink) Write(d string) { s.WriteLine(d) }

func (s *recordingSink) has(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l == line {
			return true
		}
	}
	return false
}

type fixture struct {
	devices   *mocks.MockDeviceProvider
	transport *mocks.MockTransport
	prog      *mocks.MockProgrammer
	out       *recordingSink
	ctrl      *MainController
}

func newFixture(t *testing.T) *fixture {
	mc := gomock.NewController(t)
	f := &fixture{
		devices:   mocks.NewMockDeviceProvider(mc),
		transport: mocks.NewMockTransport(mc),
		prog:      mocks.NewMockProgrammer(mc),
		out:       &recordingSink{},
	}
	f.transport.EXPECT().Device().Return(testDevice).AnyTimes()
	f.transport.EXPECT().SetTracing(gomock.Any()).AnyTimes()

	log := logger.Nop()
	sess := session.NewService(models.Config{}, session.Deps{
		Devices:     f.devices,
		Transports:  func(models.DeviceHandle, bool) ports.Transport { return f.transport },
		Programmers: func(ports.LoaderOptions) (ports.Programmer, error) { return f.prog, nil },
		Output:      f.out,
		Logger:      log,
	})
	f.ctrl = NewMainController(Deps{
		Session: sess,
		Flash:   flash.NewService(log),
		Output:  f.out,
		Logger:  log,
	})
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity("ESP32"), nil)
	if err := f.ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func (f *fixture) selectAll(t *testing.T) {
	t.Helper()
	for i := range f.ctrl.Rows() {
		if err := f.ctrl.SetImage(i, "img.bin", []byte{byte(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestConnectUpdatesViewModel(t *testing.T) {
	f := newFixture(t)
	updates := 0
	f.ctrl.SetOnUpdate(func() { updates++ })

	f.connect(t)

	v := f.ctrl.ViewModel().Snapshot()
	if v.ConnectedLabel != "Connected to device: ESP32" || !v.ShowErase {
		t.Errorf("view = %+v", v)
	}
	if updates == 0 {
		t.Error("no UI updates")
	}
}

func TestConnectFailureReported(t *testing.T) {
	f := newFixture(t)
	f.devices.EXPECT().RequestPort(gomock.Any()).Return(testDevice, nil)
	f.prog.EXPECT().Main(gomock.Any()).Return(models.ChipIdentity(""), errors.New("Timeout"))
	f.transport.EXPECT().Disconnect().Return(nil)

	if err := f.ctrl.Connect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !f.out.has("Error: Timeout") {
		t.Errorf("terminal = %q", f.out.lines)
	}
	if f.ctrl.ViewModel().Snapshot().Mode != models.ModeDisconnected {
		t.Error("mode changed after failed handshake")
	}
}

func TestProgramValidationShowsAlert(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	if err := f.ctrl.SetImage(0, "bootloader.bin", []byte{1}); err != nil {
		t.Fatal(err)
	}

	err := f.ctrl.Program(context.Background())
	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Row != 2 {
		t.Fatalf("err = %v", err)
	}
	if got := f.ctrl.ViewModel().Snapshot().Alert; got != "No file selected for row 2!" {
		t.Errorf("alert = %q", got)
	}
}

func TestProgramSuccess(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.selectAll(t)
	f.ctrl.ViewModel().SetAlert("stale")

	gomock.InOrder(
		f.prog.EXPECT().WriteFlash(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, opts ports.FlashOptions) error {
				for i, file := range opts.Files {
					opts.ReportProgress(i, len(file.Data), len(file.Data))
				}
				return nil
			}),
		f.prog.EXPECT().After(gomock.Any()).Return(nil),
	)

	if err := f.ctrl.Program(context.Background()); err != nil {
		t.Fatalf("Program: %v", err)
	}

	v := f.ctrl.ViewModel().Snapshot()
	if v.Alert != "" {
		t.Errorf("alert = %q", v.Alert)
	}
	for i, r := range v.Rows {
		if r.Progress.Active || r.Progress.Percent != 100 {
			t.Errorf("row %d progress = %+v", i, r.Progress)
		}
	}
	if v.Busy {
		t.Error("session still busy")
	}
}

func TestProgramWithoutConnection(t *testing.T) {
	f := newFixture(t)
	f.selectAll(t)

	if err := f.ctrl.Program(context.Background()); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("err = %v", err)
	}
}

func TestDisconnectCleansTerminal(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.ctrl.ViewModel().SetAlert("No file selected for row 1!")
	f.transport.EXPECT().Disconnect().Return(nil)

	if err := f.ctrl.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if f.out.clean != 1 {
		t.Errorf("clean = %d", f.out.clean)
	}
	v := f.ctrl.ViewModel().Snapshot()
	if v.Alert != "" || !v.ShowConnect {
		t.Errorf("view = %+v", v)
	}
}

func TestTrace(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Trace()
	if !f.out.has("Trace is empty") {
		t.Errorf("terminal = %q", f.out.lines)
	}

	f.connect(t)
	f.transport.EXPECT().ReturnTrace().Return("TX c0\nRX c0\n")
	f.ctrl.Trace()
	if !f.out.has("TX c0") || !f.out.has("RX c0") {
		t.Errorf("terminal = %q", f.out.lines)
	}
}

func TestSelectFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "firmware.bin")
	if err := os.WriteFile(path, []byte{0xe9, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.ctrl.SelectFile(2, path); err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	row := f.ctrl.ViewModel().Snapshot().Rows[2]
	if row.FileName != "firmware.bin" || row.Size != 2 {
		t.Errorf("row = %+v", row)
	}

	if err := f.ctrl.ClearFile(2); err != nil {
		t.Fatal(err)
	}
	if f.ctrl.Rows()[2].HasImage() {
		t.Error("image not cleared")
	}

	if err := f.ctrl.SetImage(5, "x", nil); err == nil || !strings.Contains(err.Error(), "row 6") {
		t.Errorf("err = %v", err)
	}
	if err := f.ctrl.SelectFile(0, filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected load error")
	}
}
