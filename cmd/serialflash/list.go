package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"serialflash/internal/infrastructure/serialport"
)

var (
	historyLimitFlag  int
	clearProfilesFlag bool
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := a.Connections.GetSystemPorts()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tVID:PID\tSERIAL\tBRIDGE")
		for _, d := range list {
			ids := "-"
			if d.IsUSB {
				ids = d.VID + ":" + d.PID
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.PortName, ids, d.SerialNumber, serialport.BridgeName(d.VID, d.PID))
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show flash history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer cleanup()

		if a.History == nil {
			return fmt.Errorf("history is disabled")
		}
		records, err := a.History.List(cmd.Context(), historyLimitFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tPORT\tCHIP\tOUTCOME\tIMAGES\tERROR")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
				rec.PortName, rec.Chip, rec.Outcome, len(rec.Images), rec.Error)
			for _, img := range rec.Images {
				fmt.Fprintf(w, "\t  0x%05X\t%s\t%d bytes\t%s\t\n", img.Offset, img.FileName, img.Size, img.Checksum)
			}
		}
		return w.Flush()
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show remembered device profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer cleanup()

		if a.Profiles == nil {
			return fmt.Errorf("profiles are disabled")
		}
		if clearProfilesFlag {
			return a.Connections.ClearProfiles()
		}
		profiles, err := a.Connections.LoadProfiles()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tSERIAL\tFLASH BAUD\tCONSOLE BAUD\tCHIP\tLAST USED")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", p.PortName, p.SerialNumber,
				p.FlashBaudRate, p.ConsoleBaudRate, p.LastChip,
				p.LastUsed.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of jobs to show (0 - all)")
	profilesCmd.Flags().BoolVar(&clearProfilesFlag, "clear", false, "Remove all profiles")

	rootCmd.AddCommand(portsCmd, historyCmd, profilesCmd)
}
