package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pepasjc/savesync/internal/sdk"
)

var historyCmd = &cobra.Command{
	Use:   "history TITLE_ID",
	Short: "List a title's archived save versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		versions, err := client.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No archived versions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tSIZE\tFILES")
		for _, v := range versions {
			fmt.Fprintf(w, "%s\t%s\t%d\n",
				color.CyanString(v.Timestamp), humanize.IBytes(v.Size), v.FileCount)
		}
		return w.Flush()
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore TITLE_ID TIMESTAMP",
	Short: "Promote an archived version back to the current save",
	Long: "Downloads the archived version and re-uploads it as the current save.\n" +
		"The replaced current save is archived, so nothing is lost.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		b, err := client.DownloadHistory(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		b.Timestamp = uint32(time.Now().Unix())

		result, err := client.Upload(cmd.Context(), b, &sdk.UploadOptions{
			Force:     true,
			Source:    "restore",
			ConsoleID: consoleID(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Restored %d files (%s) as the current save, server timestamp %s\n",
			len(b.Files), humanize.IBytes(b.TotalSize()), result.Timestamp)
		return nil
	},
}
