package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"serialflash/internal/app"
	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/logger"
	"serialflash/internal/infrastructure/programmer"
)

var (
	// Глобальные флаги
	portFlag        string
	baudFlag        int
	consoleBaudFlag int
	debugFlag       bool
	traceFlag       bool
	profilesFlag    string
	historyFlag     string
	charsetFlag     string
	logFileFlag     string

	// Параметры программатора
	chipFlag       string
	blockSizeFlag  int
	blockDelayFlag time.Duration
	eraseDelayFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "serialflash",
	Short: "Serial firmware flasher and device console (simulated programmer)",
	Long: `serialflash runs the flashing workflow for a bootloader, partition table and
application image over a USB-serial bridge, and streams the device console.

The programmer is simulated: it opens the port, pulses DTR into the bootloader
and sends a sync frame, but it does not write image data to the chip. Flash
jobs are recorded in the history with the "simulated" outcome.

Use the tui or serve commands for an interactive front end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	dataDir := defaultDataDir()

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&portFlag, "port", "p", "", "Serial port (empty - first known USB bridge)")
	pf.IntVarP(&baudFlag, "baud", "b", 0, fmt.Sprintf("Flash baud rate (default %d or profile)", models.DefaultFlashBaudRate))
	pf.IntVar(&consoleBaudFlag, "console-baud", 0, fmt.Sprintf("Console baud rate (default %d or profile)", models.DefaultConsoleBaudRate))
	pf.BoolVar(&debugFlag, "debug", false, "Verbose programmer logging")
	pf.BoolVar(&traceFlag, "trace", false, "Record the serial exchange trace")
	pf.StringVar(&profilesFlag, "profiles", filepath.Join(dataDir, "profiles.json"), "Device profiles file (empty - disabled)")
	pf.StringVar(&historyFlag, "history", filepath.Join(dataDir, "history.db"), "Flash history database (empty - disabled)")
	pf.StringVar(&charsetFlag, "charset", "", "Console output charset, e.g. cp1251 (default utf-8)")
	pf.StringVar(&logFileFlag, "log-file", "", "Write logs to file instead of stderr")

	pf.StringVar(&chipFlag, "sim-chip", string(programmer.DefaultChip), "Chip identity reported by the simulated programmer")
	pf.IntVar(&blockSizeFlag, "block-size", programmer.DefaultBlockSize, "Flash write block size")
	pf.DurationVar(&blockDelayFlag, "block-delay", 0, "Delay per written block")
	pf.DurationVar(&eraseDelayFlag, "erase-delay", 0, "Duration of a full chip erase")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultDataDir возвращает каталог данных пользователя.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "serialflash")
}

// signalContext отменяется по Ctrl-C или SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newLogger создаёт логгер по флагам. quiet подавляет вывод в stderr
// (полноэкранный интерфейс).
func newLogger(quiet bool) (ports.Logger, func(), error) {
	if logFileFlag != "" {
		f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return logger.New(f, debugFlag), func() { f.Close() }, nil
	}
	if quiet {
		return logger.Nop(), func() {}, nil
	}
	return logger.NewStderr(debugFlag), func() {}, nil
}

// newApp собирает приложение по глобальным флагам. out - терминал оператора.
func newApp(out io.Writer, quiet bool) (*app.App, func(), error) {
	log, closeLog, err := newLogger(quiet)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.NewApp(app.Options{
		Config: models.Config{
			PortName:        portFlag,
			FlashBaudRate:   baudFlag,
			ConsoleBaudRate: consoleBaudFlag,
			DebugLogging:    debugFlag,
			Tracing:         traceFlag,
			Charset:         charsetFlag,
		},
		ProfilesPath: profilesFlag,
		HistoryPath:  historyFlag,
		Simulation: programmer.Options{
			Chip:       models.ChipIdentity(chipFlag),
			BlockSize:  blockSizeFlag,
			BlockDelay: blockDelayFlag,
			EraseDelay: eraseDelayFlag,
		},
		Output: out,
		Logger: log,
	})
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warn("close: %v", err)
		}
		closeLog()
	}
	return a, cleanup, nil
}
