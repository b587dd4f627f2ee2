// Package programmer содержит программатор, который проходит полный цикл
// прошивки (вход в загрузчик, стирание, запись блоками, сброс) без
// протокола конкретного чипа. Используется для отладки интерфейса и в тестах.
package programmer

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/logger"
)

const (
	DefaultChip        models.ChipIdentity = "ESP32-D0WD (revision 1)"
	DefaultBlockSize                       = 0x4000
	DefaultROMBaudRate                     = 115200
)

const simulationNotice = "Simulated programmer: no data is written to the chip"

// syncFrame - SLIP-кадр синхронизации ROM-загрузчика.
var syncFrame = append(append([]byte{0xc0, 0x00, 0x08, 0x24, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0x07, 0x12, 0x20},
	bytes.Repeat([]byte{0x55}, 32)...), 0xc0)

// Options настраивает симуляцию.
type Options struct {
	Chip        models.ChipIdentity
	BlockSize   int
	BlockDelay  time.Duration // Задержка на запись блока
	EraseDelay  time.Duration
	ResetPulse  time.Duration
	ROMBaudRate int
}

func (o Options) withDefaults() Options {
	if o.Chip == "" {
		o.Chip = DefaultChip
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.ROMBaudRate <= 0 {
		o.ROMBaudRate = DefaultROMBaudRate
	}
	if o.ResetPulse <= 0 {
		o.ResetPulse = models.DefaultResetPulse
	}
	return o
}

// Factory возвращает фабрику программаторов для сессии.
func Factory(sim Options, log ports.Logger) ports.ProgrammerFactory {
	if log == nil {
		log = logger.Nop()
	}
	return func(opts ports.LoaderOptions) (ports.Programmer, error) {
		if opts.Transport == nil {
			return nil, errors.New("programmer requires a transport")
		}
		return New(opts, sim, log), nil
	}
}

// Simulated реализует ports.Programmer.
type Simulated struct {
	opts ports.LoaderOptions
	sim  Options
	log  ports.Logger
	term ports.OutputSink

	connected bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// Simulated сообщает, что данные в чип не записываются.
func (p *Simulated) Simulated() bool { return true }

// New создаёт программатор поверх транспорта из opts.
func New(opts ports.LoaderOptions, sim Options, log ports.Logger) *Simulated {
	term := opts.Terminal
	if term == nil {
		term = nopSink{}
	}
	return &Simulated{
		opts:  opts,
		sim:   sim.withDefaults(),
		log:   log,
		term:  term,
		sleep: sleepContext,
	}
}

// Main переводит чип в загрузчик и возвращает его идентификатор.
func (p *Simulated) Main(ctx context.Context) (models.ChipIdentity, error) {
	t := p.opts.Transport
	p.term.WriteLine(simulationNotice)
	p.term.WriteLine(fmt.Sprintf("Serial port %s", t.Device().PortName))
	p.term.WriteLine("Connecting...")

	if err := t.Connect(ctx, p.sim.ROMBaudRate); err != nil {
		return "", errors.Annotatef(err, "failed to connect to %s", t.Device().PortName)
	}

	// Классический сброс в загрузчик: IO0 удерживается, EN дёргается через DTR
	if err := t.SetDTR(false); err != nil {
		return "", errors.Annotate(err, "enter bootloader")
	}
	if err := p.sleep(ctx, p.sim.ResetPulse); err != nil {
		return "", errors.Trace(err)
	}
	if err := t.SetDTR(true); err != nil {
		return "", errors.Annotate(err, "enter bootloader")
	}

	if _, err := t.Write(syncFrame); err != nil {
		return "", errors.Annotate(err, "sync")
	}
	p.debug("sync frame sent (%d bytes)", len(syncFrame))

	p.term.WriteLine(fmt.Sprintf("Chip is %s", p.sim.Chip))

	if p.opts.BaudRate > 0 && p.opts.BaudRate != p.sim.ROMBaudRate {
		p.term.WriteLine(fmt.Sprintf("Changing baud rate to %d", p.opts.BaudRate))
		if err := t.Connect(ctx, p.opts.BaudRate); err != nil {
			return "", errors.Annotatef(err, "change baud rate to %d", p.opts.BaudRate)
		}
		p.term.WriteLine("Changed.")
	}

	p.connected = true
	return p.sim.Chip, nil
}

// EraseFlash стирает всю флеш-память.
func (p *Simulated) EraseFlash(ctx context.Context) error {
	if !p.connected {
		return errors.New("programmer is not connected")
	}
	start := time.Now()
	p.term.WriteLine("Erasing flash (this may take a while)...")
	if err := p.sleep(ctx, p.sim.EraseDelay); err != nil {
		return errors.Annotate(err, "erase")
	}
	p.term.WriteLine(fmt.Sprintf("Chip erase completed successfully in %.1fs", time.Since(start).Seconds()))
	return nil
}

// WriteFlash записывает образы по порядку, сообщая прогресс поблочно.
func (p *Simulated) WriteFlash(ctx context.Context, opts ports.FlashOptions) error {
	if !p.connected {
		return errors.New("programmer is not connected")
	}
	if opts.EraseAll {
		if err := p.EraseFlash(ctx); err != nil {
			return errors.Trace(err)
		}
	}

	for i, f := range opts.Files {
		if err := p.writeFile(ctx, i, f, opts); err != nil {
			return errors.Annotatef(err, "write image %d at 0x%08x", i, f.Address)
		}
	}
	return nil
}

func (p *Simulated) writeFile(ctx context.Context, index int, f ports.FlashFile, opts ports.FlashOptions) error {
	start := time.Now()
	data := pad4(f.Data)
	total := len(data)

	payload := total
	if opts.Compress {
		n, err := compressedSize(data)
		if err != nil {
			return errors.Trace(err)
		}
		payload = n
		p.term.WriteLine(fmt.Sprintf("Compressed %d bytes to %d...", total, payload))
	}

	report := func(written int) {
		if opts.ReportProgress != nil {
			opts.ReportProgress(index, written, total)
		}
	}

	report(0)
	for written := 0; written < total; {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		n := p.sim.BlockSize
		if written+n > total {
			n = total - written
		}
		if err := p.sleep(ctx, p.sim.BlockDelay); err != nil {
			return errors.Trace(err)
		}
		written += n
		p.debug("image %d: block done, %d/%d", index, written, total)
		report(written)
	}

	p.term.WriteLine(fmt.Sprintf("Simulated write of %d bytes (%d compressed) at 0x%08x in %.1f seconds.",
		total, payload, f.Address, time.Since(start).Seconds()))

	// Сумма считается по исходному образу, как в истории прошивок
	if opts.CalculateChecksum != nil {
		p.term.WriteLine(fmt.Sprintf("Image hash (not read back from chip): %s", opts.CalculateChecksum(f.Data)))
	}
	return nil
}

// After выполняет аппаратный сброс, чтобы чип запустил прошивку.
func (p *Simulated) After(ctx context.Context) error {
	t := p.opts.Transport
	p.term.WriteLine("Leaving...")
	p.term.WriteLine("Hard resetting via DTR pin...")
	if err := t.SetDTR(false); err != nil {
		return errors.Annotate(err, "hard reset")
	}
	if err := p.sleep(ctx, p.sim.ResetPulse); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(t.SetDTR(true), "hard reset")
}

func (p *Simulated) debug(format string, args ...interface{}) {
	if p.opts.DebugLogging {
		p.log.Debug(format, args...)
	}
}

// pad4 дополняет образ байтами 0xFF до кратности 4.
func pad4(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		padded := make([]byte, len(data), len(data)+4-rem)
		copy(padded, data)
		return append(padded, bytes.Repeat([]byte{0xff}, 4-rem)...)
	}
	return data
}

func compressedSize(data []byte) (int, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(data); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopSink struct{}

func (nopSink) Clean()           {}
func (nopSink) WriteLine(string) {}
func (nopSink) Write(string)     {}
