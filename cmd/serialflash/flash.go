package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"serialflash/internal/app"
	"serialflash/internal/domain/models"
	"serialflash/internal/service/flash"
)

var (
	bootloaderFlag string
	partitionsFlag string
	appFlag        string
	eraseFirstFlag bool
)

var flashCmd = &cobra.Command{
	Use:   "flash [bootloader partitions app]",
	Short: "Write bootloader, partition table and application images",
	Long: fmt.Sprintf(`Runs a flash job for three images at fixed offsets:
  0x%04X  bootloader
  0x%04X  partition table
  0x%04X  application
Images are raw binaries or Intel HEX (.hex) files. The programmer is
simulated and does not write image data to the chip.`,
		models.BootloaderOffset, models.PartitionOffset, models.AppOffset),
	Args: cobra.RangeArgs(0, 3),
	RunE: runFlash,
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the whole flash",
	Args:  cobra.NoArgs,
	RunE:  runErase,
}

func init() {
	flashCmd.Flags().StringVar(&bootloaderFlag, "bootloader", "", "Bootloader image")
	flashCmd.Flags().StringVar(&partitionsFlag, "partitions", "", "Partition table image")
	flashCmd.Flags().StringVar(&appFlag, "app", "", "Application image")
	flashCmd.Flags().BoolVar(&eraseFirstFlag, "erase", false, "Erase the flash before writing")

	rootCmd.AddCommand(flashCmd, eraseCmd)
}

func runFlash(cmd *cobra.Command, args []string) error {
	paths := []string{bootloaderFlag, partitionsFlag, appFlag}
	for i, arg := range args {
		paths[i] = arg
	}

	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := newApp(os.Stdout, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl := a.Controller
	for i, path := range paths {
		if path == "" {
			continue
		}
		if err := ctrl.SelectFile(i, path); err != nil {
			return err
		}
	}
	// Строки проверяются до захвата порта
	if err := flash.Validate(ctrl.Rows()); err != nil {
		return err
	}

	if err := ctrl.Connect(ctx); err != nil {
		return err
	}
	if eraseFirstFlag {
		if err := ctrl.Erase(ctx); err != nil {
			return err
		}
	}

	done := printProgress(a)
	err = ctrl.Program(ctx)
	done()
	if err != nil {
		return err
	}
	return ctrl.Disconnect(ctx)
}

func runErase(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := newApp(os.Stdout, false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Controller.Connect(ctx); err != nil {
		return err
	}
	if err := a.Controller.Erase(ctx); err != nil {
		return err
	}
	fmt.Println("Flash erased")
	return a.Controller.Disconnect(ctx)
}

// printProgress печатает завершение каждой строки раскладки.
func printProgress(a *app.App) (stop func()) {
	var mu sync.Mutex
	reported := make(map[int]bool)

	a.Controller.SetOnUpdate(func() {
		view := a.Controller.ViewModel().Snapshot()
		mu.Lock()
		defer mu.Unlock()
		for i, row := range view.Rows {
			if row.Progress.Active && row.Progress.Percent == 100 && !reported[i] {
				reported[i] = true
				fmt.Printf("[%d/%d] %s %s done\n", i+1, len(view.Rows), row.Offset, row.FileName)
			}
		}
	})
	return func() { a.Controller.SetOnUpdate(nil) }
}
