package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pepasjc/savesync/internal/reconcile"
)

var planCmd = &cobra.Command{
	Use:   "plan DIR",
	Short: "Show what a sync of a local save directory would do",
	Long: "DIR holds one subdirectory per title, named by title id. Each title's\n" +
		"local state is compared against the server and the resulting plan is\n" +
		"printed without transferring any saves.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		titles, err := scanLocalTitles(args[0])
		if err != nil {
			return err
		}

		plan, err := client.Plan(cmd.Context(), titles, consoleID())
		if err != nil {
			return err
		}

		printSection(color.New(color.FgGreen), "Upload", plan.Upload)
		printSection(color.New(color.FgBlue), "Download", plan.Download)
		printSection(color.New(color.FgYellow), "Conflict", plan.Conflict)
		printSection(color.New(color.FgHiBlack), "Up to date", plan.UpToDate)
		printSection(color.New(color.FgMagenta), "Server only", plan.ServerOnly)

		for _, c := range plan.ConflictInfo {
			fmt.Printf("\n%s %s\n", color.YellowString("conflict:"), c.TitleID)
			fmt.Printf("  local:  size=%d hash=%s\n", c.ClientSize, c.ClientHash)
			fmt.Printf("  server: size=%d timestamp=%s hash=%s console=%s\n",
				c.ServerSize, c.ServerTimestamp, c.ServerHash, c.ServerConsoleID)
			if c.SameConsole {
				fmt.Println("  both saves came from this console")
			}
		}
		return nil
	},
}

// scanLocalTitles builds per-title state from a directory of title-id
// subdirectories, hashing each one the way the server does.
func scanLocalTitles(root string) ([]reconcile.TitleState, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var titles []reconcile.TitleState
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := readBundleDir(e.Name(), filepath.Join(root, e.Name()))
		if err != nil {
			// skip dirs not named by a title id
			continue
		}
		titles = append(titles, reconcile.TitleState{
			TitleID:   b.TitleIDHex(),
			SaveHash:  b.ContentHash(),
			Timestamp: b.Timestamp,
			Size:      b.TotalSize(),
		})
	}
	return titles, nil
}

func printSection(c *color.Color, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("%s (%d)\n", c.Sprint(label), len(ids))
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}
