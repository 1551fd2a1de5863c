package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/sdk"
)

var (
	pushForce  bool
	pushSource string
)

var pushCmd = &cobra.Command{
	Use:   "push TITLE_ID DIR",
	Short: "Upload a local directory as a title's new current save",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		b, err := readBundleDir(args[0], args[1])
		if err != nil {
			return err
		}

		result, err := client.Upload(cmd.Context(), b, &sdk.UploadOptions{
			Force:     pushForce,
			Source:    pushSource,
			ConsoleID: consoleID(),
		})
		var stale *sdk.StaleError
		if errors.As(err, &stale) {
			color.Yellow("Server has a newer or equal save (timestamp=%s).", stale.ServerTimestamp)
			fmt.Println("Re-run with --force to overwrite it.")
			return err
		}
		if err != nil {
			return err
		}

		fmt.Printf("Pushed %d files (%s), server timestamp %s\n",
			len(b.Files), humanize.IBytes(b.TotalSize()), result.Timestamp)
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVarP(&pushForce, "force", "f", false, "Overwrite even if the server copy is newer")
	pushCmd.Flags().StringVar(&pushSource, "source", "ctl", "Source label recorded with the save")
}

// readBundleDir packs every regular file under dir into a bundle, with
// paths relative to dir and the newest file mtime as the save timestamp.
func readBundleDir(titleID, dir string) (*bundle.Bundle, error) {
	tid, err := bundle.ParseTitleID(titleID)
	if err != nil {
		return nil, err
	}

	var (
		files  []bundle.File
		newest time.Time
	)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		files = append(files, bundle.NewFile(filepath.ToSlash(rel), data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if newest.IsZero() {
		newest = time.Now()
	}

	return &bundle.Bundle{
		TitleID:   tid,
		Timestamp: uint32(newest.Unix()),
		Files:     files,
	}, nil
}
