package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "List titles with stored saves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		titles, err := client.Titles(cmd.Context())
		if err != nil {
			return err
		}
		if len(titles) == 0 {
			fmt.Println("No saves stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE ID\tNAME\tSIZE\tFILES\tLAST SYNC\tSOURCE")
		for _, t := range titles {
			name := t.Name
			if name == "" {
				name = color.HiBlackString("(unknown)")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				color.CyanString(t.TitleID), name,
				humanize.IBytes(t.SaveSize), t.FileCount,
				t.LastSync, t.LastSyncSource)
		}
		return w.Flush()
	},
}
