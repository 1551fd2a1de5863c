package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta TITLE_ID",
	Short: "Show a title's save metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		meta, err := client.Meta(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Title ID:          %s\n", color.CyanString(meta.TitleID))
		if meta.Name != "" {
			fmt.Printf("Name:              %s\n", meta.Name)
		}
		fmt.Printf("Size:              %s (%d files)\n", humanize.IBytes(meta.SaveSize), meta.FileCount)
		fmt.Printf("Hash:              %s\n", meta.SaveHash)
		fmt.Printf("Last sync:         %s from %s\n", meta.LastSync, meta.LastSyncSource)
		fmt.Printf("Client timestamp:  %d\n", meta.ClientTimestamp)
		fmt.Printf("Server timestamp:  %s\n", meta.ServerTimestamp)
		if meta.ConsoleID != "" {
			fmt.Printf("Console:           %s\n", meta.ConsoleID)
		}
		return nil
	},
}
