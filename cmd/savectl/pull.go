package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/utils"
)

var pullOutput string

var pullCmd = &cobra.Command{
	Use:   "pull TITLE_ID",
	Short: "Download a title's current save to a local directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		b, err := client.Download(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		dir := pullOutput
		if dir == "" {
			dir = b.TitleIDHex()
		}
		if err := writeBundleDir(b, dir); err != nil {
			return err
		}

		fmt.Printf("Pulled %d files (%s) into %s\n",
			len(b.Files), humanize.IBytes(b.TotalSize()), dir)
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "Directory to write the save into (default: the title id)")
}

func writeBundleDir(b *bundle.Bundle, dir string) error {
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	for _, f := range b.Files {
		dst := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := utils.EnsureParent(dst); err != nil {
			return err
		}
		if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
