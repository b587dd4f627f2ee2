package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"serialflash/internal/domain/models"
)

// escapeKey завершает консоль (Ctrl-]).
const escapeKey = 0x1d

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Stream the device console (Ctrl-] to exit)",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := newApp(os.Stdout, false)
	if err != nil {
		return err
	}
	defer cleanup()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, oldState)
	}
	fmt.Fprintf(os.Stderr, "--- Console, Ctrl-] to exit ---\r\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go forwardInput(ctx, os.Stdin, a.Controller.WriteConsole, cancel)

	// Остановка консоли по выходу оператора или сигналу
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		a.Controller.StopConsole(context.Background())
	}()

	err = a.Controller.StartConsole(ctx, 0)
	cancel()
	<-stopped
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// forwardInput передаёт ввод оператора устройству до Ctrl-] или конца ввода.
func forwardInput(ctx context.Context, r io.Reader, write func([]byte) error, quit func()) {
	defer quit()
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for i, b := range chunk {
				if b == escapeKey {
					if i > 0 {
						write(chunk[:i])
					}
					return
				}
			}
			if err := write(chunk); err != nil && !errors.Is(err, models.ErrNotConnected) {
				return
			}
		}
		if err != nil || ctx.Err() != nil {
			return
		}
	}
}
