package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		status, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		state := color.GreenString(status.Status)
		if status.Status != "ok" {
			state = color.RedString(status.Status)
		}
		fmt.Printf("Status:   %s\n", state)
		fmt.Printf("Version:  %s\n", status.Version)
		fmt.Printf("Saves:    %d\n", status.SaveCount)
		if status.Disk != nil {
			fmt.Printf("Disk:     %s free of %s (%.1f%% used)\n",
				humanize.IBytes(status.Disk.FreeBytes),
				humanize.IBytes(status.Disk.TotalBytes),
				status.Disk.UsedPercent)
		}
		return nil
	},
}
