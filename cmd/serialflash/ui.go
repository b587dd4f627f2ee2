package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"serialflash/internal/domain/models"
	"serialflash/internal/server"
	"serialflash/internal/ui/tui"
)

var addrFlag string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, cleanup, err := newApp(nil, true)
		if err != nil {
			return err
		}
		defer cleanup()

		err = tui.Run(ctx, a.Controller, a.Terminal)
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Web interface over HTTP and websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, cleanup, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer cleanup()

		hub := server.NewHub(a.Charset)
		remove := a.Output.Add(hub)
		defer remove()

		a.Monitor.SetUpdateCallback(func(list []models.DeviceHandle) {
			hub.Broadcast(server.Event{Type: "ports", Ports: list})
		})
		a.Monitor.Start(ctx)
		defer a.Monitor.Stop()

		srv := &http.Server{
			Addr: addrFlag,
			Handler: server.New(ctx, server.Deps{
				Controller: a.Controller,
				Hub:        hub,
				Terminal:   a.Terminal,
				Ports:      a.Connections,
				History:    a.History,
				Charset:    a.Charset,
				Logger:     a.Log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			a.Log.Info("listening on %s", addrFlag)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(tuiCmd, serveCmd)
}
